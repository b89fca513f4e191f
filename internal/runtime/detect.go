package runtime

import (
	"fmt"
	"os/exec"
	goruntime "runtime"

	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/system"
)

// RuntimeType identifies which container runtime to use
type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
	RuntimeAuto   RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// GOOS overrides the operating system used for detection
	GOOS string

	// LookPath overrides binary lookup for detection
	LookPath func(string) (string, error)
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() Config {
	return Config{Type: RuntimeAuto}
}

// Preference returns the detection order for an operating system.
// Podman is preferred on Linux for rootless operation. On macOS the
// VM-bridged agent socket is provided by Docker Desktop and OrbStack, so
// docker comes first.
func Preference(goos string) []RuntimeType {
	if goos == "darwin" {
		return []RuntimeType{RuntimeDocker, RuntimePodman}
	}
	return []RuntimeType{RuntimePodman, RuntimeDocker}
}

// Detect determines which container runtime is installed.
func Detect(goos string, lookPath func(string) (string, error)) (RuntimeType, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	logging.Debug("detecting container runtime", "os", goos)

	order := Preference(goos)
	for _, rt := range order {
		if _, err := lookPath(string(rt)); err == nil {
			logging.Debug("detected runtime", "runtime", rt)
			return rt, nil
		}
	}
	return "", fmt.Errorf("%w: no supported container runtime found (tried: %s, %s)",
		ErrUnavailable, order[0], order[1])
}

// New creates a new Runtime based on the configuration.
// If Type is RuntimeAuto, it auto-detects the best runtime.
func New(cfg Config, exec system.CommandExecutor) (Runtime, error) {
	runtimeType := cfg.Type
	if runtimeType == "" || runtimeType == RuntimeAuto {
		goos := cfg.GOOS
		if goos == "" {
			goos = goruntime.GOOS
		}
		detected, err := Detect(goos, cfg.LookPath)
		if err != nil {
			return nil, err
		}
		runtimeType = detected
	}

	switch runtimeType {
	case RuntimeDocker, RuntimePodman:
		return NewDockerRuntime(string(runtimeType), exec), nil
	default:
		return nil, fmt.Errorf("unknown runtime type: %s", runtimeType)
	}
}
