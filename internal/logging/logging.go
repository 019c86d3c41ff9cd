// Package logging wires up the process-wide slog logger: a tint handler on
// stderr, optionally tee'd into an append-only log file. The log file is
// best-effort; failure to open it never prevents startup.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger. When logFile is non-empty it is opened
// for appending, relative paths resolved against workDir. The returned
// function closes the log file and is safe to call even when no file was
// opened.
func Setup(verbose int, logFile, workDir string) func() {
	level := slog.LevelInfo
	if verbose > 0 {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	var openErr error
	var path string

	if logFile != "" {
		path = logFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			out = io.MultiWriter(os.Stderr, f)
			closeFn = func() { f.Close() }
		} else {
			openErr = err
		}
	}

	handler := tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})
	slog.SetDefault(slog.New(handler))

	if openErr != nil {
		slog.Warn("Failed to open log file, logging to console only", "path", path, "error", openErr)
	}

	return closeFn
}
