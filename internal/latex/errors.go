package latex

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine invocation failures.
var (
	// ErrEngineNotFound indicates the typesetting engine binary is not on PATH.
	ErrEngineNotFound = errors.New("typesetting engine not found")
	// ErrEngineRunFailed indicates the engine ran and reported failure.
	ErrEngineRunFailed = errors.New("typesetting engine failed")
)

// RunError carries the engine's exit status so callers can propagate it
// verbatim as the process exit code.
type RunError struct {
	Command string
	Code    int
	Output  string // tail of combined output for diagnostics
}

func (e *RunError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.Code, e.Output)
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

func (e *RunError) Unwrap() error { return ErrEngineRunFailed }

// ExitCode returns the engine's exit status.
func (e *RunError) ExitCode() int { return e.Code }
