package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/firefly-engineering/realm/internal/audit"
	"github.com/firefly-engineering/realm/internal/config"
	rerrors "github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/ssh"
	"github.com/firefly-engineering/realm/internal/system"
	"github.com/firefly-engineering/realm/internal/terminal"
	"github.com/firefly-engineering/realm/internal/workspace"
)

// Forwarder resolves SSH agent forwarding.
type Forwarder interface {
	Resolve(enabled bool) (*ssh.Plan, error)
}

// EventLog records session lifecycle events.
type EventLog interface {
	Log(event audit.Event) error
	Remove(session string) error
}

type discardEvents struct{ audit.Discard }

func (discardEvents) Remove(string) error { return nil }

// Deps holds the collaborators of an Orchestrator. Paths, Settings,
// Registry, Runtime and Provisioner are required.
type Deps struct {
	Paths       *config.Paths
	Settings    *config.Settings
	Registry    registry.Registry
	Runtime     runtime.Runtime
	Provisioner workspace.Provisioner
	Forwarder   Forwarder
	Events      EventLog
	FS          system.FileSystem

	// HomeDir locates the host ~/.gitconfig.
	HomeDir string

	// Now, PID, ProcessAlive and Getwd default to the real process values.
	Now          func() time.Time
	PID          int
	ProcessAlive func(pid int) bool
	Getwd        func() (string, error)

	// RestoreTerminal runs after every attach or exec.
	RestoreTerminal func()
}

// Orchestrator reconciles the registry with the runtime and drives session
// actions. All registry access is scoped to single metadata operations;
// no lock is held across a clone or a runtime call.
type Orchestrator struct {
	paths       *config.Paths
	settings    *config.Settings
	registry    registry.Registry
	runtime     runtime.Runtime
	provisioner workspace.Provisioner
	forwarder   Forwarder
	events      EventLog
	fs          system.FileSystem

	homeDir string
	now     func() time.Time
	pid     int
	alive   func(pid int) bool
	getwd   func() (string, error)
	restore func()
}

// New creates an Orchestrator, filling unset optional dependencies.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		paths:       d.Paths,
		settings:    d.Settings,
		registry:    d.Registry,
		runtime:     d.Runtime,
		provisioner: d.Provisioner,
		forwarder:   d.Forwarder,
		events:      d.Events,
		fs:          d.FS,
		homeDir:     d.HomeDir,
		now:         d.Now,
		pid:         d.PID,
		alive:       d.ProcessAlive,
		getwd:       d.Getwd,
		restore:     d.RestoreTerminal,
	}
	if o.settings == nil {
		o.settings = config.DefaultSettings()
	}
	if o.forwarder == nil {
		o.forwarder = ssh.NewForwarder(ssh.HostPlatform())
	}
	if o.events == nil {
		o.events = discardEvents{}
	}
	if o.fs == nil {
		o.fs = system.DefaultFS()
	}
	if o.homeDir == "" {
		o.homeDir, _ = os.UserHomeDir()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.pid == 0 {
		o.pid = os.Getpid()
	}
	if o.alive == nil {
		o.alive = processAlive
	}
	if o.getwd == nil {
		o.getwd = os.Getwd
	}
	if o.restore == nil {
		o.restore = terminal.RestoreStdout
	}
	return o
}

// Runtime returns the container runtime in use.
func (o *Orchestrator) Runtime() runtime.Runtime {
	return o.runtime
}

func (o *Orchestrator) record(s *registry.Session, typ audit.EventType, details string) {
	err := o.events.Log(audit.Event{
		Timestamp: o.now(),
		Type:      typ,
		Session:   s.Name,
		SessionID: s.ID,
		Details:   details,
	})
	if err != nil {
		logging.Warn("failed to write session event", "session", s.Name, "event", typ, "error", err)
	}
}

func (o *Orchestrator) validateName(name string) error {
	if err := config.ValidateSessionName(name); err != nil {
		return rerrors.InvalidName(name, err.Error())
	}
	return nil
}

func (o *Orchestrator) checkRuntime(ctx context.Context) error {
	if err := o.runtime.Check(ctx); err != nil {
		return rerrors.RuntimeUnavailable(o.runtime.Name(), err)
	}
	return nil
}

// toolError maps a runtime failure to the external-tool class.
func (o *Orchestrator) toolError(op string, err error) error {
	var realmErr *rerrors.RealmError
	if errors.As(err, &realmErr) {
		return err
	}
	output := ""
	var exitErr *system.ExitError
	if errors.As(err, &exitErr) {
		output = exitErr.Result.Stderr
	}
	return rerrors.ExternalToolFailed(o.runtime.Name(), op, trimOutput(output), err)
}

// registryError maps registry failures that are not part of the caller's
// control flow.
func registryError(name string, err error) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return rerrors.SessionNotFound(name)
	case errors.Is(err, registry.ErrConflict):
		return rerrors.SessionConflict(name, err)
	case errors.Is(err, registry.ErrLocked):
		return rerrors.Wrap(rerrors.ExitConflict, "session registry is busy", err).
			WithHint("another realm command is holding the registry; try again")
	default:
		return rerrors.Wrap(rerrors.ExitGeneralError, "session registry failed", err)
	}
}

// resolveRuntimeArgs returns the per-invocation extra runtime arguments.
func (o *Orchestrator) resolveRuntimeArgs(opts Options) ([]string, error) {
	if opts.RuntimeArgsSet {
		return opts.RuntimeArgs, nil
	}
	args, err := o.settings.RuntimeArgList()
	if err != nil {
		return nil, rerrors.ConfigError("invalid runtime arguments", err)
	}
	return args, nil
}

// resolveForwarding returns the SSH plan, or nil with a warning when the
// agent cannot be forwarded.
func (o *Orchestrator) resolveForwarding(enabled bool, res *Result) *ssh.Plan {
	plan, err := o.forwarder.Resolve(enabled)
	if err == nil {
		return plan
	}
	if !errors.Is(err, ssh.ErrDisabled) {
		msg := "SSH agent not found, continuing without agent forwarding"
		logging.Warn(msg, "error", err)
		res.Warnings = append(res.Warnings, msg)
	}
	return nil
}

// createOptions composes the container definition for a session.
func (o *Orchestrator) createOptions(s *registry.Session, plan *ssh.Plan) runtime.CreateOptions {
	name := config.ContainerName(s.Name)
	opts := runtime.CreateOptions{
		Name:     name,
		Hostname: name,
		Image:    s.Image,
		Mounts: []runtime.Mount{
			{Source: s.WorkspacePath, Target: s.Options.MountPath},
		},
		WorkDir: s.Options.MountPath,
		Labels: map[string]string{
			config.LabelSession:   s.Name,
			config.LabelSessionID: s.ID,
		},
		ExtraArgs: s.Options.RuntimeArgs,
		Command:   s.Options.Command,
	}

	if o.settings.MountGitconfig && o.homeDir != "" {
		gitconfig := filepath.Join(o.homeDir, ".gitconfig")
		if o.fs.Exists(gitconfig) {
			opts.Mounts = append(opts.Mounts, runtime.Mount{Source: gitconfig, Target: "/etc/gitconfig", ReadOnly: true})
		}
	}

	if plan != nil {
		opts.Mounts = append(opts.Mounts, runtime.Mount{Source: plan.HostSocket, Target: plan.ContainerSocket})
		opts.Env = append(opts.Env, plan.Env()...)
	}
	opts.Env = append(opts.Env, s.Options.Env...)
	return opts
}

// createContainer prepares forwarding and creates the session's container.
func (o *Orchestrator) createContainer(ctx context.Context, s *registry.Session, res *Result) (string, error) {
	plan := o.resolveForwarding(s.Options.SSH, res)
	if plan != nil && plan.NeedsPermissionFix {
		if preparer, ok := o.runtime.(runtime.SocketPreparer); ok {
			if err := preparer.PrepareSocket(ctx, s.Image, plan.HostSocket); err != nil {
				logging.Debug("ssh socket permission fix failed", "error", err)
			}
		}
	}

	ref, err := o.runtime.Create(ctx, o.createOptions(s, plan))
	if err != nil {
		return "", o.toolError("create", err)
	}
	logging.Debug("container created", "session", s.Name, "ref", ref)
	return ref, nil
}

// enter brings the container into the requested foreground state: start it
// when it is not running, then attach, exec or return when detached.
func (o *Orchestrator) enter(ctx context.Context, s *registry.Session, running bool, execCmd []string, detach bool, res *Result) error {
	if !running {
		if err := o.runtime.Start(ctx, s.ContainerRef); err != nil {
			return o.toolError("start", err)
		}
		o.record(s, audit.EventStart, "")
	}
	if detach {
		return nil
	}

	defer o.restore()

	if len(execCmd) > 0 {
		code, err := o.runtime.Exec(ctx, s.ContainerRef, runtime.ExecOptions{
			Command:    execCmd,
			WorkDir:    s.Options.MountPath,
			DetachKeys: o.settings.DetachKeys,
		})
		if err != nil {
			return o.toolError("exec", err)
		}
		o.record(s, audit.EventExec, joinCommand(execCmd))
		res.ExitCode = code
		return nil
	}

	code, err := o.runtime.Attach(ctx, s.ContainerRef, o.settings.DetachKeys)
	if err != nil {
		return o.toolError("attach", err)
	}
	o.record(s, audit.EventAttach, "")
	res.ExitCode = code
	return nil
}

// workspaceMissing reports whether a session's workspace is gone.
func (o *Orchestrator) workspaceMissing(s *registry.Session) bool {
	return !o.fs.IsDir(s.WorkspacePath)
}
