package sandbox

import (
	"context"

	"github.com/firefly-engineering/realm/internal/config"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
)

// List returns every session, oldest first, with its live status. When the
// runtime cannot be queried the status is StatusUnknown.
func (o *Orchestrator) List(ctx context.Context) ([]SessionView, error) {
	sessions, err := o.registry.List(ctx)
	if err != nil {
		return nil, registryError("", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	var containers []*runtime.ContainerInfo
	listErr := o.runtime.Check(ctx)
	if listErr == nil {
		containers, listErr = o.runtime.List(ctx, config.LabelSession)
	}
	if listErr != nil {
		logging.Warn("could not query container runtime", "error", listErr)
	}

	byRef := make(map[string]runtime.ContainerStatus, len(containers))
	for _, c := range containers {
		byRef[c.Ref] = c.Status
	}

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{Session: s, Status: o.status(s, byRef, listErr)})
	}
	return views, nil
}

func (o *Orchestrator) status(s *registry.Session, byRef map[string]runtime.ContainerStatus, listErr error) Status {
	switch {
	case s.Creating():
		if o.alive(s.CreatingPID) {
			return StatusCreating
		}
		return StatusAbsent
	case listErr != nil:
		return StatusUnknown
	}
	switch byRef[s.ContainerRef] {
	case runtime.StatusRunning:
		return StatusRunning
	case runtime.StatusStopped:
		return StatusStopped
	default:
		return StatusAbsent
	}
}

// Get returns the record for name.
func (o *Orchestrator) Get(ctx context.Context, name string) (*registry.Session, error) {
	if err := o.validateName(name); err != nil {
		return nil, err
	}
	s, err := o.registry.Get(ctx, name)
	if err != nil {
		return nil, registryError(name, err)
	}
	return s, nil
}

// Path returns the workspace directory of a session.
func (o *Orchestrator) Path(ctx context.Context, name string) (string, error) {
	s, err := o.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return s.WorkspacePath, nil
}
