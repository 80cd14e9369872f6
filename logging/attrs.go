package logging

import (
	"log/slog"
	"time"
)

// Well-known attribute keys.
const (
	// FieldComponent tags records with the subsystem that emitted them.
	// The console handler folds it into the message prefix.
	FieldComponent = "component"
	// FieldRunID tags every record of one daemon run.
	FieldRunID = "run_id"
)

// Attr aliases slog.Attr so call sites only import this package.
type Attr = slog.Attr

func Any(key string, value any) Attr                { return slog.Any(key, value) }
func Bool(key string, value bool) Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }
func Int(key string, value int) Attr                { return slog.Int(key, value) }
func String(key, value string) Attr                 { return slog.String(key, value) }

// Error wraps an error under the conventional "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}
