package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupWritesLogFile(t *testing.T) {
	dir := t.TempDir()

	closeFn := Setup(0, "test.log", dir)
	defer closeFn()

	slog.Info("hello from the test")

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty after logging")
	}
}

func TestSetupUnwritableLogFileIsNonFatal(t *testing.T) {
	// Pointing the log file at a directory makes the open fail; setup must
	// still install a working console logger.
	dir := t.TempDir()

	closeFn := Setup(0, dir, dir)
	defer closeFn()

	slog.Info("still logging to console")
}

func TestSetupWithoutLogFile(t *testing.T) {
	closeFn := Setup(1, "", t.TempDir())
	if closeFn == nil {
		t.Fatal("Setup() returned nil close function")
	}
	closeFn()
}
