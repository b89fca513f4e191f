package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/firefly-engineering/realm/internal/audit"
	"github.com/firefly-engineering/realm/internal/config"
	rerrors "github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/workspace"
)

// Stop stops the session's container. The registry record is untouched.
// It returns the status the container had before the call.
func (o *Orchestrator) Stop(ctx context.Context, name string) (runtime.ContainerStatus, error) {
	if err := o.validateName(name); err != nil {
		return "", err
	}
	s, err := o.registry.Get(ctx, name)
	if err != nil {
		return "", registryError(name, err)
	}
	if s.Creating() {
		if s.CreatingPID != o.pid && o.alive(s.CreatingPID) {
			return "", rerrors.SessionConflict(name, fmt.Errorf("being created by process %d", s.CreatingPID))
		}
		// An interrupted create never started its container.
		logging.Debug("stop of interrupted create", "session", name, "pid", s.CreatingPID)
		return runtime.StatusStopped, nil
	}
	if err := o.checkRuntime(ctx); err != nil {
		return "", err
	}

	info, err := o.runtime.Inspect(ctx, s.ContainerRef)
	if err != nil {
		return "", o.toolError("inspect", err)
	}
	switch info.Status {
	case runtime.StatusAbsent:
		logging.Warn("session container no longer exists", "session", name, "ref", s.ContainerRef)
	case runtime.StatusRunning:
		if err := o.runtime.Stop(ctx, s.ContainerRef); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
			return info.Status, o.toolError("stop", err)
		}
		o.record(s, audit.EventStop, "")
	}
	return info.Status, nil
}

// Remove deletes a session: stop, remove the container, tear down the
// workspace and finally delete the record. Any failure keeps the record so
// that a retry can finish the job. Removing an unknown name cleans up
// leftovers and otherwise succeeds.
func (o *Orchestrator) Remove(ctx context.Context, name string) (*RemoveResult, error) {
	if err := o.validateName(name); err != nil {
		return nil, err
	}
	res := &RemoveResult{Name: name}

	s, err := o.registry.Get(ctx, name)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return res, o.removeLeftovers(ctx, name, res)
	case err != nil:
		return nil, registryError(name, err)
	}
	res.Existed = true

	if s.Creating() && s.CreatingPID != o.pid && o.alive(s.CreatingPID) {
		return nil, rerrors.SessionConflict(name, fmt.Errorf("being created by process %d", s.CreatingPID))
	}
	if err := o.checkRuntime(ctx); err != nil {
		return nil, err
	}

	var errs []error
	if s.ContainerRef != "" {
		info, err := o.runtime.Inspect(ctx, s.ContainerRef)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("inspect container: %w", err))
		case info.Status == runtime.StatusRunning:
			if err := o.runtime.Stop(ctx, s.ContainerRef); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
				logging.Debug("stop before remove failed", "session", name, "error", err)
			}
		}
		if err := o.runtime.Remove(ctx, s.ContainerRef); err != nil {
			errs = append(errs, fmt.Errorf("remove container %s: %w", s.ContainerRef, err))
		} else {
			res.Cleaned = append(res.Cleaned, "container")
		}
	}
	// Also by name, in case an interrupted recreate left a second container.
	if err := o.runtime.Remove(ctx, config.ContainerName(name)); err != nil {
		errs = append(errs, fmt.Errorf("remove container %s: %w", config.ContainerName(name), err))
	}

	switch err := o.provisioner.Teardown(s.WorkspacePath); {
	case err == nil:
		res.Cleaned = append(res.Cleaned, "workspace")
	case errors.Is(err, workspace.ErrNotFound):
	default:
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		o.record(s, audit.EventError, "remove failed: "+err.Error())
		return res, rerrors.PartialCleanup(name, err)
	}

	if err := o.registry.Delete(ctx, name); err != nil && !errors.Is(err, registry.ErrNotFound) {
		return res, rerrors.PartialCleanup(name, err)
	}
	res.Cleaned = append(res.Cleaned, "record")

	o.record(s, audit.EventRemove, "")
	if err := o.events.Remove(name); err != nil {
		logging.Debug("failed to remove event log", "session", name, "error", err)
	}
	return res, nil
}

// removeLeftovers cleans the container and workspace of a name that has no
// record, which is what a remove interrupted after the delete leaves behind.
func (o *Orchestrator) removeLeftovers(ctx context.Context, name string, res *RemoveResult) error {
	var errs []error

	wsPath, err := o.paths.WorkspacePath(name)
	if err != nil {
		return rerrors.InvalidName(name, err.Error())
	}
	switch err := o.provisioner.Teardown(wsPath); {
	case err == nil:
		res.Cleaned = append(res.Cleaned, "workspace")
	case errors.Is(err, workspace.ErrNotFound):
	default:
		errs = append(errs, err)
	}

	if o.runtime.Check(ctx) == nil {
		info, err := o.runtime.Inspect(ctx, config.ContainerName(name))
		if err != nil {
			errs = append(errs, err)
		} else if info.Status != runtime.StatusAbsent {
			if err := o.runtime.Remove(ctx, config.ContainerName(name)); err != nil {
				errs = append(errs, err)
			} else {
				res.Cleaned = append(res.Cleaned, "container")
			}
		}
	}

	if len(errs) > 0 {
		return rerrors.PartialCleanup(name, errors.Join(errs...))
	}
	if len(res.Cleaned) == 0 {
		logging.Debug("nothing to remove", "session", name)
	}
	return nil
}

// GC reports state that is out of line between the registry, the
// workspaces directory and the runtime. With force it removes orphaned
// workspaces, orphaned containers and reservations left by dead creates.
// Dangling sessions are only reported; their workspaces may hold work.
func (o *Orchestrator) GC(ctx context.Context, force bool) (*GCReport, error) {
	if err := o.checkRuntime(ctx); err != nil {
		return nil, err
	}
	sessions, err := o.registry.List(ctx)
	if err != nil {
		return nil, registryError("", err)
	}
	containers, err := o.runtime.List(ctx, config.LabelSession)
	if err != nil {
		return nil, o.toolError("list", err)
	}

	report := &GCReport{}
	knownNames := make(map[string]bool, len(sessions))
	knownWorkspaces := make(map[string]bool, len(sessions))
	liveRefs := make(map[string]bool, len(containers))
	for _, c := range containers {
		liveRefs[c.Ref] = true
	}

	for _, s := range sessions {
		knownNames[s.Name] = true
		knownWorkspaces[s.WorkspacePath] = true

		if s.Creating() {
			if !o.alive(s.CreatingPID) {
				report.Interrupted = append(report.Interrupted, s.Name)
			}
			continue
		}
		if !liveRefs[s.ContainerRef] || o.workspaceMissing(s) {
			report.Dangling = append(report.Dangling, s.Name)
		}
	}

	for _, c := range containers {
		owner := c.Labels[config.LabelSession]
		if !knownNames[owner] {
			report.OrphanContainers = append(report.OrphanContainers, c)
		}
	}

	report.OrphanWorkspaces, err = workspace.Orphans(o.fs, o.paths.WorkspacesDir, knownWorkspaces)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ExitGeneralError, "failed to scan workspaces", err)
	}

	if !force {
		return report, nil
	}

	var errs []error
	for _, c := range report.OrphanContainers {
		if err := o.runtime.Remove(ctx, c.Ref); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Removed = append(report.Removed, "container "+c.Name)
	}
	for _, path := range report.OrphanWorkspaces {
		if err := o.provisioner.Teardown(path); err != nil && !errors.Is(err, workspace.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		report.Removed = append(report.Removed, "workspace "+path)
	}
	for _, name := range report.Interrupted {
		if _, err := o.Remove(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Removed = append(report.Removed, "session "+name)
	}
	if len(errs) > 0 {
		return report, rerrors.Wrap(rerrors.ExitPartialCleanup, "gc could not remove everything", errors.Join(errs...)).
			WithHint("run 'realm gc --force' again")
	}
	return report, nil
}
