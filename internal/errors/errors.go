package errors

import (
	"errors"
	"fmt"
)

// Exit codes for realm
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidInput    = 2
	ExitSessionNotFound = 3
	ExitConflict        = 4
	ExitExternalTool    = 5
	ExitRuntimeMissing  = 6
	ExitDangling        = 7
	ExitPartialCleanup  = 8
	ExitConfigError     = 9
)

// Severity classifies how a caller should treat an error.
type Severity int

const (
	// SeverityNone means there was no error.
	SeverityNone Severity = iota
	// SeverityRecoverable is a user-facing error the caller can act on
	// (pick another name, resume, recreate, retry remove).
	SeverityRecoverable
	// SeverityFatal is a failed precondition or unexpected failure.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "ok"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "fatal"
	}
}

// RealmError is the base error type for realm
type RealmError struct {
	Code    int
	Message string
	Cause   error
	// Hint is an optional recovery suggestion shown to the user.
	Hint string
}

func (e *RealmError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RealmError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *RealmError) ExitCode() int {
	return e.Code
}

// WithHint returns the error with a recovery hint attached.
func (e *RealmError) WithHint(hint string) *RealmError {
	e.Hint = hint
	return e
}

// New creates a new RealmError
func New(code int, message string) *RealmError {
	return &RealmError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a RealmError
func Wrap(code int, message string, cause error) *RealmError {
	return &RealmError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Input errors

// InvalidName returns an error for a session name that fails validation
func InvalidName(name, reason string) *RealmError {
	return New(ExitInvalidInput, fmt.Sprintf("invalid session name %q: %s", name, reason))
}

// NotARepository returns an error when the project directory is not under version control
func NotARepository(path string) *RealmError {
	return New(ExitInvalidInput, fmt.Sprintf("not inside a git repository: %s", path)).
		WithHint("run realm from inside a repository or pass --project")
}

// SessionNotFound returns an error for a missing session
func SessionNotFound(name string) *RealmError {
	return New(ExitSessionNotFound, fmt.Sprintf("session not found: %s", name))
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *RealmError {
	return New(ExitInvalidInput, message)
}

// SessionConflict returns an error when a session name is already taken or
// is being created by another invocation.
func SessionConflict(name string, cause error) *RealmError {
	return Wrap(ExitConflict, fmt.Sprintf("session %s already exists or is being created", name), cause).
		WithHint(fmt.Sprintf("resume it with 'realm %s' or choose a different name", name))
}

// ExternalToolFailed returns an error for a runtime or git invocation that
// failed. The captured output is kept in the message.
func ExternalToolFailed(tool, op, output string, cause error) *RealmError {
	msg := fmt.Sprintf("%s %s failed", tool, op)
	if output != "" {
		msg = fmt.Sprintf("%s: %s", msg, output)
	}
	return Wrap(ExitExternalTool, msg, cause)
}

// RuntimeUnavailable returns an error when the container runtime cannot be used.
func RuntimeUnavailable(runtime string, cause error) *RealmError {
	return Wrap(ExitRuntimeMissing, fmt.Sprintf("container runtime %s is not available", runtime), cause).
		WithHint("install docker or podman and make sure the daemon is running")
}

// DanglingSession returns an error when a session record points at a
// container the runtime no longer knows about.
func DanglingSession(name, ref string) *RealmError {
	return New(ExitDangling, fmt.Sprintf("session %s references container %s which no longer exists", name, ref)).
		WithHint(fmt.Sprintf("recreate it with 'realm %s --recreate' or remove it with 'realm rm %s'", name, name))
}

// MissingWorkspace returns an error when a session record outlived its
// workspace directory. The workspace is never re-cloned silently.
func MissingWorkspace(name, path string) *RealmError {
	return New(ExitDangling, fmt.Sprintf("workspace of session %s is missing: %s", name, path)).
		WithHint(fmt.Sprintf("remove the session with 'realm rm %s'", name))
}

// PartialCleanup returns an error when remove could not finish all steps.
func PartialCleanup(name string, cause error) *RealmError {
	return Wrap(ExitPartialCleanup, fmt.Sprintf("session %s was only partially removed", name), cause).
		WithHint(fmt.Sprintf("run 'realm rm %s' again to finish cleanup", name))
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *RealmError {
	return Wrap(ExitConfigError, message, cause)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var realmErr *RealmError
	if errors.As(err, &realmErr) {
		return realmErr.ExitCode()
	}
	return ExitGeneralError
}

// GetHint returns the recovery hint of the first RealmError in the chain.
func GetHint(err error) string {
	var realmErr *RealmError
	if errors.As(err, &realmErr) {
		return realmErr.Hint
	}
	return ""
}

// GetSeverity classifies err for presentation.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityNone
	}
	switch GetExitCode(err) {
	case ExitInvalidInput, ExitSessionNotFound, ExitConflict, ExitDangling, ExitPartialCleanup:
		return SeverityRecoverable
	default:
		return SeverityFatal
	}
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
