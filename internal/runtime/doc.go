// Package runtime provides a unified interface for container runtimes.
//
// Supported runtimes:
//   - docker: Docker Engine, Docker Desktop, OrbStack
//   - podman: Podman (rootless or rootful)
//
// Both are driven through their CLIs via system.CommandExecutor. Runtime
// selection is automatic (see Detect) unless settings name one.
//
// # Runtime Interface
//
// The Runtime interface defines the operations sessions need:
//   - Check: Precondition that the binary exists and the daemon answers
//   - Create, Start, Stop, Remove: Container lifecycle
//   - Attach, Exec: Interactive foreground access
//   - Inspect, List: Live state queries (running, stopped, absent)
//
// Containers are addressed by the reference the runtime returned from
// Create. Inspect reports StatusAbsent, not an error, when the runtime does
// not know a reference; errors are reserved for failures to ask.
//
// # Optional Interfaces
//
// SocketPreparer is implemented by runtimes that can fix permissions on a
// forwarded SSH agent socket inside their VM before a session starts.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create a mock implementation that can
// be configured with expected responses and used to verify calls.
package runtime
