// Package crashlog records fatal startup failures to a file so operators can
// diagnose a daemon that died before its logging was usable.
package crashlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// DefaultPath returns the crash log location used when none is configured.
func DefaultPath(appName string) string {
	return filepath.Join(os.TempDir(), appName+"-crash.log")
}

// Write appends a timestamped report for cause, including the current stack,
// to path. An empty path falls back to DefaultPath. The path written to is
// returned so callers can point the operator at it.
func Write(path, appName string, cause error) (string, error) {
	if path == "" {
		path = DefaultPath(appName)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return path, fmt.Errorf("create crash log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return path, fmt.Errorf("open crash log %s: %w", path, err)
	}
	defer f.Close()

	report := fmt.Sprintf("%s %s pid=%d\nerror: %v\n%s\n",
		time.Now().UTC().Format(time.RFC3339),
		appName,
		os.Getpid(),
		cause,
		debug.Stack(),
	)
	if _, err := f.WriteString(report); err != nil {
		return path, fmt.Errorf("write crash log %s: %w", path, err)
	}
	return path, nil
}
