// Package workspace provisions the private repository clone behind each session.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrSourceNotARepo is returned when the project is not a git repository.
	ErrSourceNotARepo = errors.New("source is not a git repository")

	// ErrDestinationExists is returned when the workspace path is already taken.
	ErrDestinationExists = errors.New("workspace already exists")

	// ErrCloneFailed is returned when cloning or configuring the clone fails.
	ErrCloneFailed = errors.New("clone failed")

	// ErrNotFound is returned by Teardown when there is nothing to remove.
	ErrNotFound = errors.New("workspace not found")

	// ErrDeleteFailed is returned by Teardown when the tree could not be removed.
	ErrDeleteFailed = errors.New("workspace delete failed")
)

// Provisioner creates and destroys session workspaces.
type Provisioner interface {
	// Provision clones projectPath into workspacePath. On failure nothing is
	// left at workspacePath.
	Provision(ctx context.Context, projectPath, workspacePath string) error

	// Teardown removes workspacePath recursively.
	Teardown(workspacePath string) error
}

// IsRepo checks if path is the root of a git repository. .git can be a
// directory (normal repo) or a file (worktree or submodule).
func IsRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir() || info.Mode().IsRegular()
}

// FindRoot walks up from start to the nearest repository root.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	for {
		if IsRepo(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", start, ErrSourceNotARepo)
		}
		dir = parent
	}
}
