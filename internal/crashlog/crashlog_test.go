package crashlog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"helperd/internal/crashlog"
)

func TestWriteRecordsErrorAndStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.log")

	written, err := crashlog.Write(path, "example", errors.New("setup exploded"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if written != path {
		t.Fatalf("reported path %q, expected %q", written, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read crash log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "setup exploded") {
		t.Fatalf("crash log missing the error, got:\n%s", content)
	}
	if !strings.Contains(content, "example") {
		t.Fatal("crash log missing the application name")
	}
	if !strings.Contains(content, "goroutine") {
		t.Fatal("crash log missing the stack trace")
	}
}

func TestWriteAppendsAcrossCrashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.log")

	if _, err := crashlog.Write(path, "example", errors.New("first")); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if _, err := crashlog.Write(path, "example", errors.New("second")); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read crash log: %v", err)
	}
	if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
		t.Fatal("crash log must keep earlier reports")
	}
}

func TestDefaultPathUsesTempDir(t *testing.T) {
	got := crashlog.DefaultPath("example")
	if got != filepath.Join(os.TempDir(), "example-crash.log") {
		t.Fatalf("unexpected default path %q", got)
	}
}
