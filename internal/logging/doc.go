// Package logging provides logging utilities for realm.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating session", "name", name, "image", image)
//	logging.Warn("ssh agent not found", "socket", sock)
//	logging.Command("running container", "docker", args...)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Cloning %s...", project)
//	logging.UserSuccess("Session %s created", name)
//	logging.UserWarning("Container for %s is gone", name)
//	logging.UserError("Failed to create session: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
