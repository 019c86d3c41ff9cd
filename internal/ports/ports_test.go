package ports

import (
	"net"
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestFindListenerFindsOwnListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	port := uint32(ln.Addr().(*net.TCPAddr).Port)

	pid, found, err := FindListener(port)
	if err != nil {
		t.Fatalf("FindListener() error: %v", err)
	}
	if !found {
		t.Skip("connection table did not expose our listener (restricted environment)")
	}
	if pid != int32(os.Getpid()) {
		t.Errorf("FindListener() pid = %d, want own pid %d", pid, os.Getpid())
	}
}

func TestFindListenerUnoccupiedPort(t *testing.T) {
	// Bind a port, note it, release it: nothing listens there afterwards.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := uint32(ln.Addr().(*net.TCPAddr).Port)
	ln.Close()

	_, found, err := FindListener(port)
	if err != nil {
		t.Fatalf("FindListener() error: %v", err)
	}
	if found {
		t.Errorf("FindListener() found a listener on released port %d", port)
	}
}

func TestKillIsIdempotent(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	pid := int32(cmd.Process.Pid)

	if err := Kill(pid); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	cmd.Wait()

	// Give the kernel a beat to reap, then kill the dead pid again
	time.Sleep(10 * time.Millisecond)
	if err := Kill(pid); err != nil {
		t.Errorf("Kill() on a dead pid returned %v, want nil", err)
	}
}

func TestAlive(t *testing.T) {
	if !Alive(int32(os.Getpid())) {
		t.Error("Alive() = false for own pid")
	}

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	pid := int32(cmd.Process.Pid)

	if !Alive(pid) {
		t.Error("Alive() = false for a running child")
	}

	Kill(pid)
	cmd.Wait()

	if Alive(pid) {
		t.Error("Alive() = true for a reaped child")
	}
}
