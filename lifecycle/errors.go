package lifecycle

import "fmt"

// SetupError reports a failed Runner.Setup. It is fatal: the Controller does
// not enter the loop and Run returns it.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return fmt.Sprintf("setup: %v", e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// ProcessError reports a failed Runner.Process invocation. It is logged and
// the loop continues with the next tick.
type ProcessError struct {
	Err error
}

func (e *ProcessError) Error() string { return fmt.Sprintf("process: %v", e.Err) }
func (e *ProcessError) Unwrap() error { return e.Err }

// CleanupError reports a failed Runner.Cleanup. It is logged; shutdown
// proceeds to the stopped state regardless.
type CleanupError struct {
	Err error
}

func (e *CleanupError) Error() string { return fmt.Sprintf("cleanup: %v", e.Err) }
func (e *CleanupError) Unwrap() error { return e.Err }
