package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	securejoin "github.com/cyphar/filepath-securejoin"
)

const (
	// DefaultImage is used when neither flags, environment nor settings name one.
	DefaultImage = "alpine/git"

	// DefaultMountPath is used when the project directory has no usable basename.
	DefaultMountPath = "/workspace"

	// ContainerPrefix is prepended to session names to form container names.
	ContainerPrefix = "realm-"

	// LabelSession and LabelSessionID are set on every container realm creates.
	LabelSession   = "realm.session"
	LabelSessionID = "realm.session-id"
)

// sessionNameRegex validates session names.
// Names start with a letter or digit, followed by letters, digits,
// underscores, or hyphens. Maximum length is 63 characters (common container
// name limit).
var sessionNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,62}$`)

// reservedNames are CLI keywords a session cannot be called.
var reservedNames = map[string]bool{
	"ls":         true,
	"list":       true,
	"stop":       true,
	"rm":         true,
	"path":       true,
	"gc":         true,
	"log":        true,
	"pick":       true,
	"runtime":    true,
	"help":       true,
	"completion": true,
	"upgrade":    true,
}

// ValidateSessionName checks if a session name is valid.
func ValidateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if !sessionNameRegex.MatchString(name) {
		return fmt.Errorf("must start with a letter or digit, contain only letters, digits, underscores, or hyphens, and be at most 63 characters")
	}

	if reservedNames[name] {
		return fmt.Errorf("%q is a reserved command name", name)
	}

	return nil
}

// IsReservedName reports whether name collides with a CLI keyword.
func IsReservedName(name string) bool {
	return reservedNames[name]
}

// DeriveMountPath returns the in-container path a project is mounted at:
// the project directory's basename under the root.
func DeriveMountPath(projectPath string) string {
	base := filepath.Base(filepath.Clean(projectPath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return DefaultMountPath
	}
	return "/" + base
}

// ContainerName returns the container name for a session
func ContainerName(sessionName string) string {
	return ContainerPrefix + sessionName
}

// Paths holds the on-disk layout under the state root.
type Paths struct {
	StateDir      string
	WorkspacesDir string
	EventsDir     string
}

// NewPaths returns the layout rooted at stateDir.
func NewPaths(stateDir string) *Paths {
	return &Paths{
		StateDir:      stateDir,
		WorkspacesDir: filepath.Join(stateDir, "workspaces"),
		EventsDir:     filepath.Join(stateDir, "events"),
	}
}

// DefaultStateDir returns ~/.realm, or a directory under the temp dir when
// the home directory cannot be determined.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "realm")
	}
	return filepath.Join(home, ".realm")
}

// RegistryPath returns the registry file for the given backend.
func (p *Paths) RegistryPath(backend string) string {
	if backend == RegistryJSON {
		return filepath.Join(p.StateDir, "registry.json")
	}
	return filepath.Join(p.StateDir, "registry.db")
}

// WorkspacePath returns the private clone directory for a session. The
// result is always inside WorkspacesDir.
func (p *Paths) WorkspacePath(name string) (string, error) {
	if err := ValidateSessionName(name); err != nil {
		return "", fmt.Errorf("invalid session name %q: %w", name, err)
	}
	path, err := securejoin.SecureJoin(p.WorkspacesDir, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace for %s: %w", name, err)
	}
	return path, nil
}

// EventsPath returns the event log file for a session.
func (p *Paths) EventsPath(name string) (string, error) {
	path, err := securejoin.SecureJoin(p.EventsDir, name+".jsonl")
	if err != nil {
		return "", fmt.Errorf("failed to resolve event log for %s: %w", name, err)
	}
	return path, nil
}

// EnsureDirs creates the state layout.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.StateDir, p.WorkspacesDir, p.EventsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
