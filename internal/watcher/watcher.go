// Package watcher implements the port reaper: it watches a directory tree
// recursively and, on any filesystem change, terminates whichever process is
// currently listening on the configured TCP port. The restart loop notices
// the termination because its blocking child exits; the two processes never
// talk to each other directly.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"go.olrik.dev/rekindle/internal/core"
	"go.olrik.dev/rekindle/internal/journal"
	"go.olrik.dev/rekindle/internal/ports"
)

// FindFunc locates the pid listening on a TCP port.
type FindFunc func(port uint32) (pid int32, found bool, err error)

// KillFunc forcefully terminates a pid.
type KillFunc func(pid int32) error

// PortReaper keeps a watched tree and a target port causally linked: any
// change under the tree kills the port's current occupant.
type PortReaper struct {
	cfg  core.WatchConfig
	port uint32
	root string
	fw   *fsnotify.Watcher

	find    FindFunc
	kill    KillFunc
	journal *journal.Journal    // optional, may be nil
	sleep   func(time.Duration) // injectable for tests
}

// New validates the watch root, sets up the recursive watch, and returns a
// ready reaper. Validation failures here are fatal to the caller: a missing
// directory or an unavailable watch facility means there is nothing to do.
func New(port uint32, dir string, cfg core.WatchConfig) (*PortReaper, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch directory does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch target is not a directory: %s", root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	r := &PortReaper{
		cfg:   cfg,
		port:  port,
		root:  root,
		fw:    fw,
		find:  ports.FindListener,
		kill:  ports.Kill,
		sleep: time.Sleep,
	}

	if err := r.addTree(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	return r, nil
}

// SetJournal attaches an optional event journal.
func (r *PortReaper) SetJournal(j *journal.Journal) {
	r.journal = j
}

// Close releases the underlying watch handle.
func (r *PortReaper) Close() error {
	return r.fw.Close()
}

// Run executes watch cycles until ctx is cancelled or the watch root
// disappears for good. Only the latter returns an error.
func (r *PortReaper) Run(ctx context.Context) error {
	slog.Info("Watching for changes", "root", r.root, "port", r.port)

	for {
		if err := r.watchCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := r.revalidateRoot(); err != nil {
			return err
		}
	}
}

// watchCycle blocks until a filesystem event arrives, a watcher error
// occurs, or the poll timeout elapses. Events reap the port; errors back
// off and retry; timeouts log a heartbeat. Only context cancellation makes
// this return an error.
func (r *PortReaper) watchCycle(ctx context.Context) error {
	timer := time.NewTimer(r.cfg.PollTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()

	case event, ok := <-r.fw.Events:
		if !ok {
			return fmt.Errorf("watcher event channel closed")
		}
		slog.Debug("Filesystem event", "event", event.Op.String(), "file", event.Name)

		// New directories need their own watch to keep the tree coverage
		// recursive.
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := r.addTree(event.Name); err != nil {
					slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
				}
			}
		}

		r.reapPort()

	case err, ok := <-r.fw.Errors:
		if !ok {
			return fmt.Errorf("watcher error channel closed")
		}
		// Transient watcher errors are retried indefinitely.
		slog.Error("Watcher error, backing off", "error", err, "backoff", r.cfg.ErrorBackoff)
		r.sleep(r.cfg.ErrorBackoff)

	case <-timer.C:
		slog.Debug("No changes observed, still watching", "root", r.root, "timeout", r.cfg.PollTimeout)
	}

	return nil
}

// reapPort terminates whatever currently listens on the target port. An
// unoccupied port is the expected case when the child already died from a
// compile error or has not started yet.
func (r *PortReaper) reapPort() {
	pid, found, err := r.find(r.port)
	if err != nil {
		slog.Error("Failed to query port occupant", "port", r.port, "error", err)
		return
	}
	if !found {
		slog.Info("No process bound to port, nothing to reap", "port", r.port)
		return
	}

	if err := r.kill(pid); err != nil {
		slog.Error("Failed to terminate process", "port", r.port, "pid", pid, "error", err)
		return
	}

	slog.Info("Terminated process holding port", "port", r.port, "pid", pid)
	if r.journal != nil {
		if err := r.journal.LogReap(int(r.port), int(pid), "change detected"); err != nil {
			slog.Debug("Failed to journal reap event", "error", err)
		}
	}
}

// revalidateRoot checks that the watch root still exists. A vanished root
// gets one grace wait to reappear (editors and build tools sometimes swap
// whole directories); after that the watch target is gone for good.
func (r *PortReaper) revalidateRoot() error {
	if _, err := os.Stat(r.root); err == nil {
		return nil
	}

	slog.Warn("Watch directory disappeared, waiting for it to return", "root", r.root, "grace", r.cfg.GracePeriod)
	r.sleep(r.cfg.GracePeriod)

	if _, err := os.Stat(r.root); err != nil {
		return fmt.Errorf("watch directory is gone: %s", r.root)
	}

	slog.Info("Watch directory reappeared", "root", r.root)
	return nil
}

// addTree adds root and every subdirectory below it to the watch.
func (r *PortReaper) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		return r.fw.Add(path)
	})
}
