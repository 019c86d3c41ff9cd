package runloop

import (
	"strings"

	"go.olrik.dev/rekindle/internal/core"
)

// Outcome classifies one completed command execution.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeTransientFailure
	OutcomeCompileError
)

// String returns a human-readable description of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransientFailure:
		return "transient failure"
	case OutcomeCompileError:
		return "compile error"
	default:
		return "unknown"
	}
}

// ExecResult is what one command execution leaves behind.
type ExecResult struct {
	Output   string // Combined stdout/stderr of the run
	ExitCode int
	Signaled bool // Child died from a signal rather than exiting
}

// Classify assigns exactly one outcome to an execution.
//
// The exit status is consulted first: a child that died from a signal was
// killed externally — that is the expected hot-reload path, so it counts as
// a success. Only when the exit status is inconclusive does the captured
// output get scanned, compile-error marker before build-failure marker.
// Build-failure text without a signal is still treated as a success: at
// this layer it means the owning process was torn down mid-run, not that
// the build itself is broken. Anything else is a transient failure and is
// informational only.
func Classify(res ExecResult, markers core.MarkerConfig) Outcome {
	if res.Signaled {
		return OutcomeSuccess
	}
	if strings.Contains(res.Output, markers.CompileError) {
		return OutcomeCompileError
	}
	if strings.Contains(res.Output, markers.BuildFailure) {
		return OutcomeSuccess
	}
	return OutcomeTransientFailure
}
