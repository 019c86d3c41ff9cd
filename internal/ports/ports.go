// Package ports answers "who is listening on this TCP port" and terminates
// the answer. Discovery goes through the OS connection table; termination is
// forceful and idempotent.
package ports

import (
	psnet "github.com/shirou/gopsutil/v3/net"
	"golang.org/x/sys/unix"
)

// FindListener returns the pid of the process currently listening on the
// given TCP port. An unoccupied port is not an error: found is false and
// err is nil.
func FindListener(port uint32) (pid int32, found bool, err error) {
	conns, err := psnet.Connections("tcp")
	if err != nil {
		return 0, false, err
	}

	for _, conn := range conns {
		if conn.Status != "LISTEN" {
			continue
		}
		if conn.Laddr.Port != port {
			continue
		}
		if conn.Pid <= 0 {
			// Connection table entry without a resolvable owner
			// (insufficient permissions); keep looking.
			continue
		}
		return conn.Pid, true, nil
	}

	return 0, false, nil
}

// Kill sends SIGKILL to pid. Killing an already-dead process is not an
// error; the reaper may race with a child that exited on its own.
func Kill(pid int32) error {
	err := unix.Kill(int(pid), unix.SIGKILL)
	if err == unix.ESRCH {
		return nil
	}
	return err
}

// Alive reports whether pid refers to a live process, using the signal 0
// probe. Wait() only works for direct children, and the processes we deal
// with never are.
func Alive(pid int32) bool {
	return unix.Kill(int(pid), 0) == nil
}
