package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/firefly-engineering/realm/internal/audit"
	"github.com/firefly-engineering/realm/internal/config"
	rerrors "github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/workspace"
)

// CreateOrResume creates the session name when it does not exist and
// resumes it otherwise.
func (o *Orchestrator) CreateOrResume(ctx context.Context, name string, opts Options) (*Result, error) {
	if err := o.validateName(name); err != nil {
		return nil, err
	}
	if err := o.checkRuntime(ctx); err != nil {
		return nil, err
	}

	s, err := o.registry.Get(ctx, name)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return o.create(ctx, name, opts)
	case err != nil:
		return nil, registryError(name, err)
	}

	if s.Creating() {
		if s.CreatingPID != o.pid && o.alive(s.CreatingPID) {
			return nil, rerrors.SessionConflict(name, fmt.Errorf("being created by process %d", s.CreatingPID))
		}
		logging.Debug("found interrupted create", "session", name, "pid", s.CreatingPID)
		return o.dangling(ctx, s, opts, &Result{Ignored: ignoredOptions(opts)})
	}
	return o.resume(ctx, s, opts)
}

// create provisions a new session. The name is reserved in the registry
// before any slow step so that a concurrent create of the same name fails
// with a conflict instead of racing.
func (o *Orchestrator) create(ctx context.Context, name string, opts Options) (*Result, error) {
	res := &Result{Action: ActionCreated}

	start := opts.ProjectDir
	if start == "" {
		wd, err := o.getwd()
		if err != nil {
			return nil, rerrors.Wrap(rerrors.ExitGeneralError, "failed to determine current directory", err)
		}
		start = wd
	}
	project, err := workspace.FindRoot(start)
	if err != nil {
		return nil, rerrors.NotARepository(start)
	}

	wsPath, err := o.paths.WorkspacePath(name)
	if err != nil {
		return nil, rerrors.InvalidName(name, err.Error())
	}

	runtimeArgs, err := o.resolveRuntimeArgs(opts)
	if err != nil {
		return nil, err
	}

	image := opts.Image
	if image == "" {
		image = o.settings.DefaultImage
	}
	mountPath := opts.MountPath
	if mountPath == "" {
		mountPath = config.DeriveMountPath(project)
	}

	now := o.now().UTC()
	s := &registry.Session{
		ID:            uuid.NewString(),
		Name:          name,
		ProjectPath:   project,
		WorkspacePath: wsPath,
		Image:         image,
		CreatedAt:     now,
		LastUsedAt:    now,
		Options: registry.RuntimeOptions{
			MountPath:   mountPath,
			Env:         opts.Env,
			Command:     opts.Command,
			SSH:         o.settings.SSH && !opts.NoSSH,
			RuntimeArgs: runtimeArgs,
		},
		CreatingPID: o.pid,
	}
	if err := s.Validate(); err != nil {
		return nil, rerrors.ValidationError(err.Error())
	}

	logging.Debug("reserving session", "session", name, "project", project, "image", image)
	if err := o.registry.Put(ctx, s, registry.PutOptions{CreateOnly: true}); err != nil {
		return nil, registryError(name, err)
	}

	provisioned := false
	ref := ""
	rollback := func(cause error) {
		logging.Debug("rolling back failed create", "session", name, "error", cause)
		if ref != "" {
			if err := o.runtime.Remove(context.WithoutCancel(ctx), ref); err != nil {
				logging.Warn("failed to remove container", "session", name, "error", err)
			}
		}
		if provisioned {
			if err := o.provisioner.Teardown(wsPath); err != nil {
				logging.Warn("failed to remove workspace", "path", wsPath, "error", err)
			}
		}
		if err := o.registry.Delete(context.WithoutCancel(ctx), name); err != nil {
			logging.Warn("failed to release session reservation", "session", name, "error", err)
		}
		o.record(s, audit.EventError, "create failed: "+cause.Error())
	}

	if err := o.paths.EnsureDirs(); err != nil {
		rollback(err)
		return nil, rerrors.Wrap(rerrors.ExitGeneralError, "failed to prepare state directory", err)
	}

	if err := o.provisioner.Provision(ctx, project, wsPath); err != nil {
		rollback(err)
		return nil, provisionError(name, project, err)
	}
	provisioned = true

	ref, err = o.createContainer(ctx, s, res)
	if err != nil {
		rollback(err)
		return nil, err
	}

	s, err = o.registry.Update(ctx, name, func(cur *registry.Session) error {
		cur.ContainerRef = ref
		cur.CreatingPID = 0
		return nil
	})
	if err != nil {
		rollback(err)
		return nil, registryError(name, err)
	}
	o.record(s, audit.EventCreate, fmt.Sprintf("image=%s ref=%s", s.Image, ref))
	res.Session = s

	// The record is final from here on: a failed start leaves a resumable session.
	if err := o.enter(ctx, s, false, nil, opts.Detach, res); err != nil {
		o.record(s, audit.EventError, err.Error())
		return nil, err
	}
	return res, nil
}

func provisionError(name, project string, err error) error {
	switch {
	case errors.Is(err, workspace.ErrSourceNotARepo):
		return rerrors.NotARepository(project)
	case errors.Is(err, workspace.ErrDestinationExists):
		return rerrors.Wrap(rerrors.ExitConflict, fmt.Sprintf("a workspace for %s already exists", name), err).
			WithHint("remove leftovers with 'realm gc --force' or 'realm rm " + name + "'")
	default:
		return rerrors.ExternalToolFailed("git", "clone", "", err)
	}
}

// ignoredOptions names the create-time options set in opts.
func ignoredOptions(opts Options) []string {
	var ignored []string
	if opts.Image != "" {
		ignored = append(ignored, "image")
	}
	if opts.MountPath != "" {
		ignored = append(ignored, "mount")
	}
	if opts.ProjectDir != "" {
		ignored = append(ignored, "project")
	}
	if len(opts.Env) > 0 {
		ignored = append(ignored, "env")
	}
	return ignored
}
