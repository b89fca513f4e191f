// Package config provides settings, naming rules and the state layout for realm.
//
// # Settings
//
// Settings are layered, lowest precedence first:
//
//   - built-in defaults (DefaultSettings)
//   - the TOML settings file ($REALM_CONFIG or ~/.config/realm/config.toml)
//   - environment variables (REALM_HOME, REALM_DEFAULT_IMAGE, REALM_DOCKER_ARGS,
//     REALM_RUNTIME, REALM_DANGLING)
//   - command line flags, applied by the cmd package
//
// Example settings file:
//
//	default_image = "ubuntu:latest"
//	runtime = "docker"
//	runtime_args = "--network host --cap-add SYS_PTRACE"
//	dangling = "recreate"
//	command_timeout = "15m"
//
// # State Layout
//
//	~/.realm/
//	    registry.db          session registry (bolt backend)
//	    registry.json        session registry (json backend)
//	    workspaces/<name>/   private clone per session
//	    events/<name>.jsonl  session event log
//
// # Session Names
//
// Names match ^[A-Za-z0-9][A-Za-z0-9_-]{0,62}$ and may not be one of the CLI
// subcommand keywords.
package config
