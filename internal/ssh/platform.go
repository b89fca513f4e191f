package ssh

import (
	"fmt"
	"io/fs"
	goruntime "runtime"
)

// ContainerSocketPath is where the agent socket appears inside every container.
const ContainerSocketPath = "/run/host-services/ssh-auth.sock"

// VMBridgedSocketPath is the agent socket exposed inside the runtime VM by
// Docker Desktop and OrbStack. It only exists inside the VM, never on the host.
const VMBridgedSocketPath = "/run/host-services/ssh-auth.sock"

// Platform describes how the container runtime reaches the host.
type Platform int

const (
	// PlatformDirect means containers share the host kernel (Linux).
	PlatformDirect Platform = iota
	// PlatformVMBridged means containers run in a VM that bridges host
	// services (macOS).
	PlatformVMBridged
)

func (p Platform) String() string {
	switch p {
	case PlatformVMBridged:
		return "vm-bridged"
	default:
		return "direct"
	}
}

// DetectPlatform maps an operating system name to a Platform.
func DetectPlatform(goos string) Platform {
	if goos == "darwin" {
		return PlatformVMBridged
	}
	return PlatformDirect
}

// HostPlatform returns the Platform of the running process.
func HostPlatform() Platform {
	return DetectPlatform(goruntime.GOOS)
}

// Host exposes the bits of the host a strategy inspects.
type Host struct {
	Getenv func(string) string
	Stat   func(string) (fs.FileInfo, error)
}

// Strategy locates the agent socket for one platform.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Locate returns the host-side socket path to bind-mount.
	Locate(host Host) (string, error)

	// NeedsPermissionFix reports whether the socket must be made
	// world-accessible before non-root container users can use it.
	NeedsPermissionFix() bool
}

// StrategyFor returns the strategy for p.
func StrategyFor(p Platform) Strategy {
	if p == PlatformVMBridged {
		return vmBridged{}
	}
	return direct{}
}

type vmBridged struct{}

func (vmBridged) Name() string { return "vm-bridged" }

// Locate always succeeds: the socket lives inside the runtime VM, so the host
// agent (including third-party agents behind SSH_AUTH_SOCK) cannot be used.
func (vmBridged) Locate(Host) (string, error) {
	return VMBridgedSocketPath, nil
}

func (vmBridged) NeedsPermissionFix() bool { return true }

type direct struct{}

func (direct) Name() string { return "direct" }

func (direct) Locate(host Host) (string, error) {
	sock := host.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return "", fmt.Errorf("%w: SSH_AUTH_SOCK is not set", ErrNoAgent)
	}
	info, err := host.Stat(sock)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAgent, err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return "", fmt.Errorf("%w: %s is not a socket", ErrNoAgent, sock)
	}
	return sock, nil
}

func (direct) NeedsPermissionFix() bool { return false }
