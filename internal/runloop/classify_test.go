package runloop

import (
	"testing"

	"go.olrik.dev/rekindle/internal/core"
)

var testMarkers = core.MarkerConfig{
	CompileError: "COMPILATION ERROR",
	BuildFailure: "BUILD FAILURE",
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		res  ExecResult
		want Outcome
	}{
		{
			name: "killed by signal is the expected reload",
			res:  ExecResult{Signaled: true, ExitCode: -1},
			want: OutcomeSuccess,
		},
		{
			name: "compile error marker",
			res:  ExecResult{Output: "[INFO] Building...\n[ERROR] COMPILATION ERROR : \n", ExitCode: 1},
			want: OutcomeCompileError,
		},
		{
			name: "build failure marker alone is a masked success",
			res:  ExecResult{Output: "[INFO] BUILD FAILURE\n", ExitCode: 1},
			want: OutcomeSuccess,
		},
		{
			name: "compile error marker beats build failure marker",
			res:  ExecResult{Output: "COMPILATION ERROR in Foo.java\nBUILD FAILURE\n", ExitCode: 1},
			want: OutcomeCompileError,
		},
		{
			name: "neither marker",
			res:  ExecResult{Output: "server stopped\n", ExitCode: 0},
			want: OutcomeTransientFailure,
		},
		{
			name: "empty output",
			res:  ExecResult{},
			want: OutcomeTransientFailure,
		},
		{
			name: "signal beats compile error marker",
			res:  ExecResult{Output: "COMPILATION ERROR\n", Signaled: true},
			want: OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.res, testMarkers); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeUnknown, "unknown"},
		{OutcomeSuccess, "success"},
		{OutcomeTransientFailure, "transient failure"},
		{OutcomeCompileError, "compile error"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}
