package runloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// execute runs the configured command through the shell, teeing its combined
// output to the caller's terminal and to a scratch capture file. It blocks
// for the full lifetime of the subprocess; for a dev server that is until
// the watch process reaps it.
func (s *Session) execute(ctx context.Context) (ExecResult, error) {
	f, err := os.CreateTemp("", "rekindle-out-*.log")
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to create scratch file: %w", err)
	}
	s.scratch = f.Name()

	cmd := exec.CommandContext(ctx, "sh", "-c", s.command)
	cmd.Dir = s.workDir

	var waitErr error
	if s.usePTY {
		waitErr = runPTY(cmd, io.MultiWriter(os.Stdout, f))
	} else {
		out := io.MultiWriter(os.Stdout, f)
		cmd.Stdout = out
		cmd.Stderr = out
		cmd.Stdin = os.Stdin
		waitErr = cmd.Run()
	}
	f.Close()

	res := ExecResult{}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			res.Signaled = true
		}
	default:
		// The command never started; nothing to classify.
		return res, waitErr
	}

	output, err := os.ReadFile(s.scratch)
	if err != nil {
		slog.Warn("Failed to read captured output", "path", s.scratch, "error", err)
	}
	res.Output = string(output)

	return res, nil
}

// runPTY starts the command under a pseudo-terminal so build tools keep
// their interactive behavior (color, progress output), while we still
// capture everything for classification.
func runPTY(cmd *exec.Cmd, out io.Writer) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	// The copy ends with EIO when the child side closes; that is the
	// normal pty shutdown, not a failure.
	io.Copy(out, ptmx)

	return cmd.Wait()
}
