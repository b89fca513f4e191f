package runtime

import (
	"context"
	"errors"
)

// ContainerStatus represents the state of a container
type ContainerStatus string

const (
	StatusRunning ContainerStatus = "running"
	StatusStopped ContainerStatus = "stopped"
	StatusAbsent  ContainerStatus = "absent"
)

var (
	// ErrUnavailable is returned by Check when the runtime cannot be used.
	ErrUnavailable = errors.New("container runtime unavailable")

	// ErrContainerNotFound is returned by operations that need an existing container.
	ErrContainerNotFound = errors.New("no such container")
)

// ContainerInfo holds information about a container
type ContainerInfo struct {
	Ref    string
	Name   string
	Image  string
	Status ContainerStatus
	Labels map[string]string
}

// CreateOptions holds options for creating a container
type CreateOptions struct {
	Name     string
	Hostname string
	Image    string
	Mounts   []Mount
	// Env entries are KEY=VALUE, or KEY to pass the host's value through.
	Env     []string
	WorkDir string
	Labels  map[string]string
	// ExtraArgs are passed to the runtime verbatim, before the image.
	ExtraArgs []string
	// Command replaces the image's default command when non-empty.
	Command []string
}

// ExecOptions holds options for running a command in a running container
type ExecOptions struct {
	Command    []string
	Env        []string
	WorkDir    string
	DetachKeys string
}

// Runtime is the interface container backends implement.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "docker", "podman")
	Name() string

	// Check verifies the runtime binary exists and its daemon responds.
	Check(ctx context.Context) error

	// Create creates a container without starting it and returns its reference.
	Create(ctx context.Context, opts CreateOptions) (string, error)

	// Start starts a stopped container and returns once it is running.
	Start(ctx context.Context, ref string) error

	// Attach connects the terminal to the container's main process. It
	// returns when the process exits or the user detaches, with the exit
	// status of the attach client.
	Attach(ctx context.Context, ref string, detachKeys string) (int, error)

	// Exec runs a command interactively in a running container.
	Exec(ctx context.Context, ref string, opts ExecOptions) (int, error)

	// Stop stops a running container. Stopping a stopped container succeeds.
	Stop(ctx context.Context, ref string) error

	// Remove force-removes a container. Removing an absent container succeeds.
	Remove(ctx context.Context, ref string) error

	// Inspect returns the live state of a container.
	Inspect(ctx context.Context, ref string) (*ContainerInfo, error)

	// List returns all containers carrying the given label key.
	List(ctx context.Context, label string) ([]*ContainerInfo, error)
}

// SocketPreparer is implemented by runtimes that can make a socket inside
// their VM accessible to non-root container users.
type SocketPreparer interface {
	PrepareSocket(ctx context.Context, image, socketPath string) error
}
