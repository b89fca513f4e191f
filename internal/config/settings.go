package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"
)

// DanglingPolicy decides what resume does when a session's container is gone.
type DanglingPolicy string

const (
	DanglingFail     DanglingPolicy = "fail"
	DanglingRecreate DanglingPolicy = "recreate"
)

// Runtime selection values.
const (
	RuntimeAuto   = "auto"
	RuntimeDocker = "docker"
	RuntimePodman = "podman"
)

// Registry backends.
const (
	RegistryBolt = "bolt"
	RegistryJSON = "json"
)

// Environment variables read by ApplyEnv.
const (
	EnvHome         = "REALM_HOME"
	EnvConfig       = "REALM_CONFIG"
	EnvDefaultImage = "REALM_DEFAULT_IMAGE"
	EnvDockerArgs   = "REALM_DOCKER_ARGS"
	EnvRuntime      = "REALM_RUNTIME"
	EnvDangling     = "REALM_DANGLING"
)

// Duration is a time.Duration read from a TOML string such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Settings is the user-level configuration. Values are layered: defaults,
// then the settings file, then the environment, then CLI flags.
type Settings struct {
	StateDir       string         `toml:"state_dir"`
	DefaultImage   string         `toml:"default_image"`
	Runtime        string         `toml:"runtime"`
	RuntimeArgs    string         `toml:"runtime_args"`
	SSH            bool           `toml:"ssh"`
	Dangling       DanglingPolicy `toml:"dangling"`
	CommandTimeout Duration       `toml:"command_timeout"`
	LockTimeout    Duration       `toml:"lock_timeout"`
	Registry       string         `toml:"registry"`
	DetachKeys     string         `toml:"detach_keys"`
	MountGitconfig bool           `toml:"mount_gitconfig"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		StateDir:       DefaultStateDir(),
		DefaultImage:   DefaultImage,
		Runtime:        RuntimeAuto,
		SSH:            true,
		Dangling:       DanglingFail,
		CommandTimeout: Duration{10 * time.Minute},
		LockTimeout:    Duration{5 * time.Second},
		Registry:       RegistryBolt,
		MountGitconfig: true,
	}
}

// SettingsPath returns the settings file location: $REALM_CONFIG, else
// $XDG_CONFIG_HOME/realm/config.toml, else ~/.config/realm/config.toml.
func SettingsPath(getenv func(string) string) string {
	if p := getenv(EnvConfig); p != "" {
		return p
	}
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "realm", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "realm", "config.toml")
}

// LoadSettings reads path over the defaults. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	md, err := toml.DecodeFile(path, s)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overlays environment variables onto s.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvHome); v != "" {
		s.StateDir = v
	}
	if v := getenv(EnvDefaultImage); v != "" {
		s.DefaultImage = v
	}
	if v := getenv(EnvDockerArgs); v != "" {
		s.RuntimeArgs = v
	}
	if v := getenv(EnvRuntime); v != "" {
		s.Runtime = v
	}
	if v := getenv(EnvDangling); v != "" {
		s.Dangling = DanglingPolicy(v)
	}
	return s.Validate()
}

// Validate checks that the Settings are usable.
func (s *Settings) Validate() error {
	switch s.Runtime {
	case RuntimeAuto, RuntimeDocker, RuntimePodman:
	default:
		return fmt.Errorf("invalid runtime %q (must be auto, docker, or podman)", s.Runtime)
	}

	switch s.Dangling {
	case DanglingFail, DanglingRecreate:
	default:
		return fmt.Errorf("invalid dangling policy %q (must be fail or recreate)", s.Dangling)
	}

	switch s.Registry {
	case RegistryBolt, RegistryJSON:
	default:
		return fmt.Errorf("invalid registry backend %q (must be bolt or json)", s.Registry)
	}

	if s.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if s.CommandTimeout.Duration < 0 || s.LockTimeout.Duration < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if _, err := s.RuntimeArgList(); err != nil {
		return err
	}
	return nil
}

// RuntimeArgList splits RuntimeArgs with shell quoting rules.
func (s *Settings) RuntimeArgList() ([]string, error) {
	return SplitArgs(s.RuntimeArgs)
}

// SplitArgs splits a shell-quoted argument string.
func SplitArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	args, err := shellquote.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid runtime arguments %q: %w", raw, err)
	}
	return args, nil
}

// Load resolves settings from the settings file and the environment.
func Load(getenv func(string) string) (*Settings, error) {
	s, err := LoadSettings(SettingsPath(getenv))
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return s, nil
}
