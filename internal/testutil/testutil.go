// Package testutil provides test utilities for packages that drive sessions
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/realm/internal/audit"
	"github.com/firefly-engineering/realm/internal/config"
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/system"
	"github.com/firefly-engineering/realm/internal/workspace"
)

// TestEnv holds the test environment
type TestEnv struct {
	T           *testing.T
	TmpDir      string
	HomeDir     string
	Paths       *config.Paths
	Settings    *config.Settings
	Registry    registry.Registry
	Runtime     *runtime.MockRuntime
	Provisioner *workspace.GitProvisioner
	Events      *audit.Logger
}

// NewTestEnv creates a new test environment with a mock runtime, a real
// bbolt registry and a real git provisioner under a temp state root.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	// Resolve symlinks so paths match what workspace.FindRoot returns.
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	paths := config.NewPaths(filepath.Join(tmpDir, "state"))
	if err := paths.EnsureDirs(); err != nil {
		t.Fatalf("Failed to create state dirs: %v", err)
	}

	home := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(home, 0755); err != nil {
		t.Fatalf("Failed to create home: %v", err)
	}

	settings := config.DefaultSettings()
	settings.StateDir = paths.StateDir
	settings.LockTimeout = config.Duration{Duration: 2 * time.Second}

	return &TestEnv{
		T:           t,
		TmpDir:      tmpDir,
		HomeDir:     home,
		Paths:       paths,
		Settings:    settings,
		Registry:    registry.NewBoltRegistry(paths.RegistryPath(config.RegistryBolt), 2*time.Second),
		Runtime:     runtime.NewMockRuntime(),
		Provisioner: workspace.NewGitProvisioner(system.NewExecutor(30*time.Second), system.DefaultFS()),
		Events:      audit.NewLogger(paths),
	}
}

// RequireGit skips the test when git is not installed.
func (e *TestEnv) RequireGit() {
	e.T.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		e.T.Skip("git not available")
	}
}

// Git runs git in dir and returns its trimmed output.
func (e *TestEnv) Git(dir string, args ...string) string {
	e.T.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=realm", "GIT_AUTHOR_EMAIL=realm@example.com",
		"GIT_COMMITTER_NAME=realm", "GIT_COMMITTER_EMAIL=realm@example.com",
		"GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		e.T.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// CreateRepo creates a git repository with one commit and an origin remote
// and returns its path.
func (e *TestEnv) CreateRepo(name string) string {
	e.T.Helper()
	e.RequireGit()

	path := filepath.Join(e.TmpDir, "repos", name)
	if err := os.MkdirAll(path, 0755); err != nil {
		e.T.Fatalf("Failed to create repo dir: %v", err)
	}
	e.Git(path, "init", "-q", "-b", "main")
	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte("# "+name+"\n"), 0644); err != nil {
		e.T.Fatalf("Failed to write file: %v", err)
	}
	e.Git(path, "add", "README.md")
	e.Git(path, "commit", "-q", "-m", "initial")
	e.Git(path, "remote", "add", "origin", "git@example.com:team/"+name+".git")
	return path
}

// CreateDir creates a plain directory that is not a repository.
func (e *TestEnv) CreateDir(name string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, "dirs", name)
	if err := os.MkdirAll(path, 0755); err != nil {
		e.T.Fatalf("Failed to create dir: %v", err)
	}
	return path
}

// AddSession stores a record directly in the registry.
func (e *TestEnv) AddSession(s *registry.Session) {
	e.T.Helper()

	if err := e.Registry.Put(e.T.Context(), s, registry.PutOptions{}); err != nil {
		e.T.Fatalf("Failed to store session: %v", err)
	}
}

// GetSession loads a record, or nil when there is none.
func (e *TestEnv) GetSession(name string) *registry.Session {
	e.T.Helper()

	s, err := e.Registry.Get(e.T.Context(), name)
	if err != nil {
		return nil
	}
	return s
}

// SessionExists checks if a record exists
func (e *TestEnv) SessionExists(name string) bool {
	return e.GetSession(name) != nil
}
