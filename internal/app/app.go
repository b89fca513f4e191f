// Package app wires realm's components together.
// It allows dependency injection for testing.
package app

import (
	"os"

	"github.com/firefly-engineering/realm/internal/audit"
	"github.com/firefly-engineering/realm/internal/config"
	"github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/sandbox"
	"github.com/firefly-engineering/realm/internal/system"
	"github.com/firefly-engineering/realm/internal/workspace"
)

// App holds the application dependencies
type App struct {
	// Settings is the layered user configuration
	Settings *config.Settings

	// Paths holds the state directory layout
	Paths *config.Paths

	// Executor runs the runtime and git binaries
	Executor system.CommandExecutor

	// Runtime is the container runtime
	Runtime runtime.Runtime

	// Registry stores session records
	Registry registry.Registry

	// Provisioner creates and removes workspaces
	Provisioner workspace.Provisioner

	// Events is the per-session event log
	Events *audit.Logger

	// Forwarder resolves SSH agent forwarding. Nil uses the host platform.
	Forwarder sandbox.Forwarder

	orchestrator *sandbox.Orchestrator
}

// Option is a function that configures the App
type Option func(*App)

// WithSettings sets the settings instead of loading them
func WithSettings(s *config.Settings) Option {
	return func(a *App) {
		a.Settings = s
	}
}

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithExecutor sets the command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = exec
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithRegistry sets a custom registry
func WithRegistry(r registry.Registry) Option {
	return func(a *App) {
		a.Registry = r
	}
}

// WithProvisioner sets a custom workspace provisioner
func WithProvisioner(p workspace.Provisioner) Option {
	return func(a *App) {
		a.Provisioner = p
	}
}

// WithForwarder sets a custom SSH forwarder
func WithForwarder(f sandbox.Forwarder) Option {
	return func(a *App) {
		a.Forwarder = f
	}
}

// New creates a new App with the given options. Settings are loaded from
// the settings file and the environment unless WithSettings is given.
func New(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.Settings == nil {
		s, err := config.Load(os.Getenv)
		if err != nil {
			return nil, errors.ConfigError("failed to load settings", err)
		}
		a.Settings = s
	}
	if a.Paths == nil {
		a.Paths = config.NewPaths(a.Settings.StateDir)
	}
	if a.Executor == nil {
		a.Executor = system.NewExecutor(a.Settings.CommandTimeout.Duration)
	}
	if a.Runtime == nil {
		a.Runtime = newRuntime(a.Settings.Runtime, a.Executor)
	}
	if a.Registry == nil {
		reg, err := registry.Open(a.Settings.Registry, a.Paths.RegistryPath(a.Settings.Registry), a.Settings.LockTimeout.Duration)
		if err != nil {
			return nil, errors.ConfigError("failed to open session registry", err)
		}
		a.Registry = reg
	}
	if a.Provisioner == nil {
		a.Provisioner = workspace.NewGitProvisioner(a.Executor, system.DefaultFS())
	}
	if a.Events == nil {
		a.Events = audit.NewLogger(a.Paths)
	}

	return a, nil
}

// newRuntime selects the configured runtime. When none is installed the
// docker adapter is returned anyway; its Check reports the runtime as
// unavailable to the commands that need it, while ls and path keep working.
func newRuntime(kind string, exec system.CommandExecutor) runtime.Runtime {
	cfg := runtime.DefaultConfig()
	cfg.Type = runtime.RuntimeType(kind)
	rt, err := runtime.New(cfg, exec)
	if err != nil {
		logging.Debug("failed to initialize runtime", "error", err)
		return runtime.NewDockerRuntime(string(runtime.RuntimeDocker), exec)
	}
	return rt
}

// Orchestrator returns the session orchestrator, creating it on first use.
func (a *App) Orchestrator() *sandbox.Orchestrator {
	if a.orchestrator == nil {
		a.orchestrator = sandbox.New(sandbox.Deps{
			Paths:       a.Paths,
			Settings:    a.Settings,
			Registry:    a.Registry,
			Runtime:     a.Runtime,
			Provisioner: a.Provisioner,
			Forwarder:   a.Forwarder,
			Events:      a.Events,
		})
	}
	return a.orchestrator
}
