package sandbox

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/realm/internal/audit"
	"github.com/firefly-engineering/realm/internal/config"
	rerrors "github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/workspace"
)

// resume reconnects to an existing session. Create-time options in opts
// never change the stored record.
func (o *Orchestrator) resume(ctx context.Context, s *registry.Session, opts Options) (*Result, error) {
	res := &Result{Ignored: ignoredOptions(opts)}
	if len(res.Ignored) > 0 {
		logging.Debug("ignoring create-time options on resume", "session", s.Name, "options", res.Ignored)
	}
	if opts.Detach && len(opts.Command) > 0 {
		return nil, rerrors.ValidationError("cannot run a command in a detached resume").
			WithHint(fmt.Sprintf("drop --detach to run the command, or run 'realm %s -d' alone", s.Name))
	}

	if o.workspaceMissing(s) {
		return nil, rerrors.MissingWorkspace(s.Name, s.WorkspacePath)
	}

	s, err := o.touch(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	res.Session = s

	info, err := o.runtime.Inspect(ctx, s.ContainerRef)
	if err != nil {
		return nil, o.toolError("inspect", err)
	}

	switch info.Status {
	case runtime.StatusRunning:
		switch {
		case opts.Detach:
			res.Action = ActionAlreadyRunning
			return res, nil
		case len(opts.Command) > 0:
			res.Action = ActionExec
		default:
			res.Action = ActionAttached
		}
		if err := o.enter(ctx, s, true, opts.Command, false, res); err != nil {
			return nil, err
		}
		return res, nil

	case runtime.StatusStopped:
		switch {
		case opts.Detach:
			res.Action = ActionStarted
		case len(opts.Command) > 0:
			res.Action = ActionExec
		default:
			res.Action = ActionAttached
		}
		if err := o.enter(ctx, s, false, opts.Command, opts.Detach, res); err != nil {
			return nil, err
		}
		return res, nil

	default:
		logging.Debug("session container is gone", "session", s.Name, "ref", s.ContainerRef)
		return o.dangling(ctx, s, opts, res)
	}
}

// touch re-resolves the runtime-only options and persists them with the
// last-used time.
func (o *Orchestrator) touch(ctx context.Context, s *registry.Session, opts Options) (*registry.Session, error) {
	runtimeArgs, err := o.resolveRuntimeArgs(opts)
	if err != nil {
		return nil, err
	}
	sshEnabled := o.settings.SSH && !opts.NoSSH

	updated, err := o.registry.Update(ctx, s.Name, func(cur *registry.Session) error {
		cur.Options.RuntimeArgs = runtimeArgs
		cur.Options.SSH = sshEnabled
		cur.LastUsedAt = o.now().UTC()
		return nil
	})
	if err != nil {
		return nil, registryError(s.Name, err)
	}
	return updated, nil
}

// dangling handles a record whose container is gone, either because it was
// removed outside realm or because the create that owned it died.
func (o *Orchestrator) dangling(ctx context.Context, s *registry.Session, opts Options, res *Result) (*Result, error) {
	if !opts.Recreate && o.settings.Dangling != config.DanglingRecreate {
		ref := s.ContainerRef
		if ref == "" {
			ref = "(interrupted create)"
		}
		return nil, rerrors.DanglingSession(s.Name, ref)
	}
	if opts.Detach && len(opts.Command) > 0 {
		return nil, rerrors.ValidationError("cannot run a command in a detached resume")
	}
	return o.recreate(ctx, s, opts, res)
}

// recreate rebuilds the container from the stored snapshot. The existing
// workspace is reused; it is only cloned again when the create that owned
// the record never finished cloning.
func (o *Orchestrator) recreate(ctx context.Context, s *registry.Session, opts Options, res *Result) (*Result, error) {
	name := s.Name
	interrupted := s.Creating()
	observedPID := s.CreatingPID

	runtimeArgs, err := o.resolveRuntimeArgs(opts)
	if err != nil {
		return nil, err
	}
	sshEnabled := o.settings.SSH && !opts.NoSSH

	// Take ownership so that a concurrent resume sees a live creator.
	s, err = o.registry.Update(ctx, name, func(cur *registry.Session) error {
		if cur.CreatingPID != observedPID {
			return fmt.Errorf("%w: session changed while recreating", registry.ErrConflict)
		}
		cur.CreatingPID = o.pid
		cur.Options.RuntimeArgs = runtimeArgs
		cur.Options.SSH = sshEnabled
		cur.LastUsedAt = o.now().UTC()
		return nil
	})
	if err != nil {
		return nil, registryError(name, err)
	}

	if o.workspaceMissing(s) || (interrupted && !workspace.IsRepo(s.WorkspacePath)) {
		if !interrupted {
			o.release(ctx, s)
			return nil, rerrors.MissingWorkspace(s.Name, s.WorkspacePath)
		}
		if o.fs.Exists(s.WorkspacePath) {
			_ = o.provisioner.Teardown(s.WorkspacePath)
		}
		if err := o.paths.EnsureDirs(); err != nil {
			o.release(ctx, s)
			return nil, rerrors.Wrap(rerrors.ExitGeneralError, "failed to prepare state directory", err)
		}
		if err := o.provisioner.Provision(ctx, s.ProjectPath, s.WorkspacePath); err != nil {
			o.release(ctx, s)
			return nil, provisionError(s.Name, s.ProjectPath, err)
		}
	}

	// Clear any container still holding the name.
	if s.ContainerRef != "" {
		if err := o.runtime.Remove(ctx, s.ContainerRef); err != nil {
			logging.Debug("stale container removal failed", "ref", s.ContainerRef, "error", err)
		}
	}
	if err := o.runtime.Remove(ctx, config.ContainerName(s.Name)); err != nil {
		logging.Debug("stale container removal failed", "name", config.ContainerName(s.Name), "error", err)
	}

	ref, err := o.createContainer(ctx, s, res)
	if err != nil {
		o.release(ctx, s)
		return nil, err
	}

	s, err = o.registry.Update(ctx, name, func(cur *registry.Session) error {
		cur.ContainerRef = ref
		cur.CreatingPID = 0
		cur.LastUsedAt = o.now().UTC()
		return nil
	})
	if err != nil {
		_ = o.runtime.Remove(context.WithoutCancel(ctx), ref)
		return nil, registryError(name, err)
	}
	o.record(s, audit.EventRecreate, "ref="+ref)
	res.Session = s
	res.Action = ActionRecreated

	if err := o.enter(ctx, s, false, opts.Command, opts.Detach, res); err != nil {
		return nil, err
	}
	return res, nil
}

// release gives up ownership taken by recreate. Interrupted creates keep
// no owner so the next attempt can retry.
func (o *Orchestrator) release(ctx context.Context, s *registry.Session) {
	_, err := o.registry.Update(context.WithoutCancel(ctx), s.Name, func(cur *registry.Session) error {
		if cur.CreatingPID == o.pid {
			if cur.ContainerRef == "" {
				// Still a reservation: mark the owner dead.
				cur.CreatingPID = -1
			} else {
				cur.CreatingPID = 0
			}
		}
		return nil
	})
	if err != nil {
		logging.Warn("failed to release session", "session", s.Name, "error", err)
	}
}
