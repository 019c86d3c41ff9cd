// Package runloop implements the restart loop: it executes a build/run
// command to completion, classifies each exit, and decides the delay before
// the next iteration. Repeated compile errors escalate into a paused state
// that only explicit human confirmation leaves.
package runloop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.olrik.dev/rekindle/internal/core"
	"go.olrik.dev/rekindle/internal/journal"
	"go.olrik.dev/rekindle/internal/notify"
)

// Session owns one restart loop. State is mutated once per iteration and
// lives until process termination.
type Session struct {
	cfg     core.RunConfig
	markers core.MarkerConfig
	command string
	workDir string
	origDir string

	errCount    int
	lastOutcome Outcome
	scratch     string // Current iteration's capture file, empty between iterations

	notifier notify.Notifier
	journal  *journal.Journal // optional, may be nil

	confirm *bufio.Reader
	sleep   func(time.Duration)
	run     func(ctx context.Context) (ExecResult, error)
	usePTY  bool
}

// NewSession validates the working directory, moves into it, and returns a
// ready session. The original working directory is recorded so Cleanup can
// restore it.
func NewSession(command, workDir string, cfg core.RunConfig, markers core.MarkerConfig, notifier notify.Notifier) (*Session, error) {
	origDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine current directory: %w", err)
	}

	if workDir == "" {
		workDir = origDir
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	info, err := os.Stat(workDir)
	if err != nil {
		return nil, fmt.Errorf("working directory does not exist: %s", workDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory is not a directory: %s", workDir)
	}

	if err := os.Chdir(workDir); err != nil {
		return nil, fmt.Errorf("failed to enter working directory: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		markers:  markers,
		command:  command,
		workDir:  workDir,
		origDir:  origDir,
		notifier: notifier,
		confirm:  bufio.NewReader(os.Stdin),
		sleep:    time.Sleep,
		usePTY:   cfg.PTY,
	}
	s.run = s.execute
	return s, nil
}

// SetJournal attaches an optional event journal.
func (s *Session) SetJournal(j *journal.Journal) {
	s.journal = j
}

// SetConfirmInput replaces the confirmation input source. The default is
// stdin.
func (s *Session) SetConfirmInput(r io.Reader) {
	s.confirm = bufio.NewReader(r)
}

// Run iterates until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	slog.Info("Starting restart loop", "command", s.command, "dir", s.workDir)
	for ctx.Err() == nil {
		s.iterate(ctx)
	}
}

// iterate performs one announce → execute → classify → react cycle. The
// scratch capture file never outlives the iteration.
func (s *Session) iterate(ctx context.Context) {
	defer s.discardScratch()

	s.notify("Building", s.command, notify.UrgencyNormal)
	slog.Info("Executing command", "command", s.command)

	res, err := s.run(ctx)
	if err != nil {
		slog.Error("Failed to execute command", "error", err)
		s.sleep(s.baseDelay())
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.react(Classify(res, s.markers), res)
}

// react applies the outcome to the session state and decides the delay
// before the next iteration.
func (s *Session) react(outcome Outcome, res ExecResult) {
	s.lastOutcome = outcome

	switch outcome {
	case OutcomeCompileError:
		s.errCount++
		slog.Warn("Compile error detected", "consecutive", s.errCount)
		s.journalBuild(outcome)
		s.notify("Build error",
			fmt.Sprintf("%d consecutive compile error(s)", s.errCount),
			notify.UrgencyNormal)

		if s.errCount >= s.cfg.MaxConsecutiveErrors {
			s.awaitContinue()
			return
		}
		// Linear backoff: the k-th consecutive error waits k times the base
		s.sleep(time.Duration(s.cfg.DelayBase*s.errCount) * time.Second)

	case OutcomeSuccess:
		if res.Signaled {
			slog.Info("Process terminated externally, restarting")
		} else {
			// Known false-negative risk: build-failure text can also mean a
			// genuine failure while the port is still held. Surface it.
			slog.Warn("Build-failure output treated as external restart")
		}
		if s.errCount > 0 {
			slog.Info("Compile errors resolved", "after", s.errCount)
			s.notify("Build fixed", "Compile errors resolved", notify.UrgencyNormal)
		}
		s.errCount = 0
		s.journalBuild(outcome)
		s.sleep(s.baseDelay())

	case OutcomeTransientFailure:
		slog.Info("Command exited without a recognized failure", "exit_code", res.ExitCode)
		s.journalBuild(outcome)
		s.sleep(s.baseDelay())
	}
}

// awaitContinue is the paused state: a blocking read with no timeout that
// only explicit confirmation leaves. Resuming resets the error counter.
func (s *Session) awaitContinue() {
	slog.Error("Too many consecutive compile errors, pausing", "count", s.errCount)
	s.notify("Build paused",
		fmt.Sprintf("%d consecutive compile errors, waiting for confirmation", s.errCount),
		notify.UrgencyCritical)

	fmt.Fprint(os.Stderr, "Build failing repeatedly. Press Enter to resume: ")
	if _, err := s.confirm.ReadString('\n'); err != nil {
		// Input closed (e.g. redirected stdin ran dry); resuming is the
		// only sensible continuation.
		slog.Warn("Confirmation input closed, resuming", "error", err)
	}

	s.errCount = 0
	slog.Info("Resuming after confirmation")
}

// Cleanup removes the scratch capture file and restores the original
// working directory. Called on signal-triggered shutdown.
func (s *Session) Cleanup() {
	s.discardScratch()
	if s.origDir != "" {
		os.Chdir(s.origDir)
	}
}

func (s *Session) discardScratch() {
	if s.scratch != "" {
		os.Remove(s.scratch)
		s.scratch = ""
	}
}

func (s *Session) baseDelay() time.Duration {
	return time.Duration(s.cfg.DelayBase) * time.Second
}

func (s *Session) notify(title, message string, urgency notify.Urgency) {
	if err := s.notifier.Send(notify.Notification{Title: title, Message: message, Urgency: urgency}); err != nil {
		slog.Debug("Notification failed", "title", title, "error", err)
	}
}

func (s *Session) journalBuild(outcome Outcome) {
	if s.journal == nil {
		return
	}
	if err := s.journal.LogBuild(outcome.String(), s.errCount, s.command); err != nil {
		slog.Debug("Failed to journal build event", "error", err)
	}
}
