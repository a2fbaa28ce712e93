package cli

import "fmt"

// Exit codes form the tool's contract with calling agents. Scripts
// branch on these, so every failure path must map to exactly one code.
const (
	ExitOK           = 0   // success / condition met
	ExitRuntime      = 1   // tmux failure, session vanished mid-operation
	ExitInvalidInput = 2   // validation error, unknown command or flag
	ExitTimeout      = 3   // condition not met within the deadline
	ExitDetached     = 4   // human detached while the agent was waiting
	ExitLocked       = 5   // session is human-locked
	ExitNotFound     = 127 // required external binary not found
)

// ExitUsage is the code for command-line usage errors. Usage failures
// are validation failures, refused before any action.
const ExitUsage = ExitInvalidInput

// ExitError carries an explicit exit code alongside an optional
// message. Main checks returned errors for the ExitCode method; plain
// errors exit 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// ExitCode returns the process exit code for this error.
func (e *ExitError) ExitCode() int { return e.Code }

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ExitError) Unwrap() error { return e.Err }

// Silent returns true when the error carries no message of its own.
// Commands that already printed their outcome (e.g. request-status
// printing "No pending request" before exiting 1) return a silent
// ExitError so main does not print a second line.
func (e *ExitError) Silent() bool { return e.Err == nil }

// Exit returns a silent ExitError with the given code.
func Exit(code int) *ExitError { return &ExitError{Code: code} }

// InvalidInputf reports a validation failure (exit 2).
func InvalidInputf(format string, args ...any) error {
	return &ExitError{Code: ExitInvalidInput, Err: fmt.Errorf(format, args...)}
}

// Timeoutf reports a deadline expiry (exit 3).
func Timeoutf(format string, args ...any) error {
	return &ExitError{Code: ExitTimeout, Err: fmt.Errorf(format, args...)}
}

// Detachedf reports that the human detached mid-wait (exit 4).
func Detachedf(format string, args ...any) error {
	return &ExitError{Code: ExitDetached, Err: fmt.Errorf(format, args...)}
}

// Lockedf reports a capability denied on a locked session (exit 5).
func Lockedf(format string, args ...any) error {
	return &ExitError{Code: ExitLocked, Err: fmt.Errorf(format, args...)}
}

// Usagef reports a command-line usage error (exit 2).
func Usagef(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf(format, args...)}
}

// NotFoundf reports a missing external binary (exit 127).
func NotFoundf(format string, args ...any) error {
	return &ExitError{Code: ExitNotFound, Err: fmt.Errorf(format, args...)}
}
