// Package ssh resolves how the host SSH agent is exposed to session containers.
package ssh

import (
	"errors"
	"os"

	"github.com/firefly-engineering/realm/internal/logging"
)

var (
	// ErrDisabled is returned when the caller turned forwarding off.
	ErrDisabled = errors.New("ssh forwarding disabled")

	// ErrNoAgent is returned when no agent socket is available.
	ErrNoAgent = errors.New("no ssh agent available")
)

// Plan is the mount and environment needed to reach the agent in a container.
type Plan struct {
	HostSocket      string
	ContainerSocket string
	// NeedsPermissionFix is set when the socket has to be chmodded from
	// inside the runtime before the session container starts.
	NeedsPermissionFix bool
}

// Env returns the environment entries for the container.
func (p *Plan) Env() []string {
	return []string{"SSH_AUTH_SOCK=" + p.ContainerSocket}
}

// Forwarder resolves forwarding plans.
type Forwarder struct {
	strategy Strategy
	host     Host
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithHost replaces environment and filesystem lookups, for tests.
func WithHost(host Host) Option {
	return func(f *Forwarder) {
		f.host = host
	}
}

// NewForwarder returns a forwarder for platform.
func NewForwarder(platform Platform, opts ...Option) *Forwarder {
	f := &Forwarder{
		strategy: StrategyFor(platform),
		host:     Host{Getenv: os.Getenv, Stat: os.Stat},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Strategy returns the strategy in use.
func (f *Forwarder) Strategy() Strategy {
	return f.strategy
}

// Resolve returns the plan for the current host. It returns ErrDisabled when
// enabled is false and an error wrapping ErrNoAgent when no agent is found;
// callers carry on without forwarding in both cases.
func (f *Forwarder) Resolve(enabled bool) (*Plan, error) {
	if !enabled {
		return nil, ErrDisabled
	}

	sock, err := f.strategy.Locate(f.host)
	if err != nil {
		logging.Debug("ssh agent not available", "strategy", f.strategy.Name(), "error", err)
		return nil, err
	}

	plan := &Plan{
		HostSocket:         sock,
		ContainerSocket:    ContainerSocketPath,
		NeedsPermissionFix: f.strategy.NeedsPermissionFix(),
	}
	logging.Debug("ssh forwarding resolved", "strategy", f.strategy.Name(), "host", sock)
	return plan, nil
}
