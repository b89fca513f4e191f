// Package errors provides typed errors with exit codes for realm.
//
// # Error Types
//
// RealmError is the base error type that wraps an error with an exit code:
//
//	type RealmError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	    Hint    string // Optional recovery suggestion
//	}
//
// # Exit Codes
//
//	ExitSuccess         = 0  // Success
//	ExitGeneralError    = 1  // General/unknown errors
//	ExitInvalidInput    = 2  // Invalid name, not a repository
//	ExitSessionNotFound = 3  // Session does not exist
//	ExitConflict        = 4  // Name taken or concurrent create
//	ExitExternalTool    = 5  // docker/podman/git exited non-zero
//	ExitRuntimeMissing  = 6  // Container runtime unavailable
//	ExitDangling        = 7  // Record without container
//	ExitPartialCleanup  = 8  // Remove did not finish
//	ExitConfigError     = 9  // Settings file or environment invalid
//
// # Severity
//
// GetSeverity splits errors into recoverable (the user can act on them:
// pick another name, recreate, rerun remove) and fatal ones:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityRecoverable:
//	    logging.UserWarning("%v", err)
//	case errors.SeverityFatal:
//	    logging.UserError("%v", err)
//	}
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
