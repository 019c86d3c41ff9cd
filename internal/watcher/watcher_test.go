package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.olrik.dev/rekindle/internal/core"
)

var testWatchConfig = core.WatchConfig{
	PollTimeout:  5 * time.Second,
	ErrorBackoff: 10 * time.Millisecond,
	GracePeriod:  10 * time.Millisecond,
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(8080, filepath.Join(t.TempDir(), "nope"), testWatchConfig)
	if err == nil {
		t.Fatal("New() succeeded for a missing directory")
	}
}

func TestNewNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(8080, file, testWatchConfig); err == nil {
		t.Fatal("New() succeeded for a regular file")
	}
}

// fakeReap records find/kill calls so tests can observe reaping without any
// real process on the port.
type fakeReap struct {
	mu       sync.Mutex
	pid      int32
	found    bool
	findErr  error
	killed   []int32
	findHits int
}

func (f *fakeReap) find(port uint32) (int32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findHits++
	return f.pid, f.found, f.findErr
}

func (f *fakeReap) kill(pid int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	return nil
}

func (f *fakeReap) killCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.killed)
}

func newTestReaper(t *testing.T, fake *fakeReap) (*PortReaper, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := New(9000, dir, testWatchConfig)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	r.find = fake.find
	r.kill = fake.kill
	r.sleep = func(time.Duration) {}
	return r, dir
}

func TestFileChangeTriggersReap(t *testing.T) {
	fake := &fakeReap{pid: 4242, found: true}
	r, dir := newTestReaper(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Give the watch loop a moment to block before changing the tree
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for fake.killCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no reap within one watch cycle of the change")
		case <-time.After(10 * time.Millisecond):
		}
	}

	fake.mu.Lock()
	killedPid := fake.killed[0]
	fake.mu.Unlock()
	if killedPid != 4242 {
		t.Errorf("killed pid = %d, want 4242", killedPid)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() returned error on cancellation: %v", err)
	}
}

func TestUnoccupiedPortIsNoOp(t *testing.T) {
	fake := &fakeReap{found: false}
	r, _ := newTestReaper(t, fake)

	r.reapPort()

	if fake.findHits != 1 {
		t.Errorf("find called %d times, want 1", fake.findHits)
	}
	if fake.killCount() != 0 {
		t.Error("kill called for an unoccupied port")
	}
}

func TestWatchCycleHeartbeatOnTimeout(t *testing.T) {
	fake := &fakeReap{pid: 1, found: true}
	r, _ := newTestReaper(t, fake)
	r.cfg.PollTimeout = 20 * time.Millisecond

	if err := r.watchCycle(context.Background()); err != nil {
		t.Fatalf("watchCycle() error on timeout: %v", err)
	}
	if fake.killCount() != 0 {
		t.Error("idle cycle reaped the port")
	}
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	fake := &fakeReap{pid: 7, found: true}
	r, dir := newTestReaper(t, fake)
	r.cfg.PollTimeout = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	sub := filepath.Join(dir, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Wait for the create event to be processed and the new dir watched
	time.Sleep(100 * time.Millisecond)
	before := fake.killCount()

	if err := os.WriteFile(filepath.Join(sub, "app.go"), []byte("package src\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for fake.killCount() <= before {
		select {
		case <-deadline:
			t.Fatal("change inside a new subdirectory did not trigger a reap")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRevalidateRootGone(t *testing.T) {
	fake := &fakeReap{}
	r, dir := newTestReaper(t, fake)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if err := r.revalidateRoot(); err == nil {
		t.Fatal("revalidateRoot() succeeded for a vanished root")
	}
}

func TestRevalidateRootReappears(t *testing.T) {
	fake := &fakeReap{}
	r, dir := newTestReaper(t, fake)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	// Grace wait recreates the root before the second check
	r.sleep = func(time.Duration) {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Errorf("failed to recreate root: %v", err)
		}
	}

	if err := r.revalidateRoot(); err != nil {
		t.Errorf("revalidateRoot() error after root reappeared: %v", err)
	}
}

func TestReapPortQueryErrorIsSwallowed(t *testing.T) {
	// Reap errors are logged and swallowed; the cycle must not die
	fake := &fakeReap{findErr: os.ErrPermission}
	r, _ := newTestReaper(t, fake)

	r.reapPort()

	if fake.killCount() != 0 {
		t.Error("kill called after a failed port query")
	}
}
