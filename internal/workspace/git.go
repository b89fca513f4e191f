package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/system"
)

// workspaceMode lets non-root container users write to the clone.
const workspaceMode = 0777

// GitProvisioner implements Provisioner with `git clone --local`. The clone
// hardlinks immutable object files where the filesystem allows but has its
// own .git directory, so refs, index and config are never shared with the
// source.
type GitProvisioner struct {
	exec system.CommandExecutor
	fs   system.FileSystem
}

// NewGitProvisioner returns a provisioner that runs git through exec.
func NewGitProvisioner(exec system.CommandExecutor, fs system.FileSystem) *GitProvisioner {
	return &GitProvisioner{exec: exec, fs: fs}
}

func (p *GitProvisioner) git(ctx context.Context, args ...string) (*system.Result, error) {
	return p.exec.Run(ctx, system.Command{Name: "git", Args: args})
}

func (p *GitProvisioner) Provision(ctx context.Context, projectPath, workspacePath string) error {
	if !IsRepo(projectPath) {
		return fmt.Errorf("%s: %w", projectPath, ErrSourceNotARepo)
	}
	if p.fs.Exists(workspacePath) {
		return fmt.Errorf("%s: %w", workspacePath, ErrDestinationExists)
	}
	if err := p.fs.MkdirAll(filepath.Dir(workspacePath), 0755); err != nil {
		return fmt.Errorf("%w: failed to create parent directory: %v", ErrCloneFailed, err)
	}

	logging.Debug("cloning workspace", "source", projectPath, "workspace", workspacePath)
	if _, err := p.git(ctx, "clone", "--local", "--", projectPath, workspacePath); err != nil {
		p.discard(workspacePath)
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	if err := p.repointOrigin(ctx, projectPath, workspacePath); err != nil {
		p.discard(workspacePath)
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	if err := p.fs.Chmod(workspacePath, workspaceMode); err != nil {
		logging.Warn("failed to open workspace permissions", "workspace", workspacePath, "error", err)
	}
	return nil
}

// repointOrigin replaces the clone's origin (the host path) with the
// project's own origin URL. A project without an origin keeps the host path.
func (p *GitProvisioner) repointOrigin(ctx context.Context, projectPath, workspacePath string) error {
	res, err := p.git(ctx, "-C", projectPath, "remote", "get-url", "origin")
	if err != nil {
		var exitErr *system.ExitError
		if errors.As(err, &exitErr) {
			logging.Debug("project has no origin remote, keeping local origin", "project", projectPath)
			return nil
		}
		return fmt.Errorf("reading origin of %s: %w", projectPath, err)
	}

	url := strings.TrimSpace(res.Stdout)
	if url == "" {
		return nil
	}
	if _, err := p.git(ctx, "-C", workspacePath, "remote", "set-url", "origin", url); err != nil {
		return fmt.Errorf("setting origin to %s: %w", url, err)
	}
	logging.Debug("repointed origin", "workspace", workspacePath, "url", url)
	return nil
}

// discard removes a partially created workspace.
func (p *GitProvisioner) discard(workspacePath string) {
	if err := p.fs.RemoveAll(workspacePath); err != nil {
		logging.Warn("failed to remove partial workspace", "workspace", workspacePath, "error", err)
	}
}

func (p *GitProvisioner) Teardown(workspacePath string) error {
	if !p.fs.Exists(workspacePath) {
		return fmt.Errorf("%s: %w", workspacePath, ErrNotFound)
	}
	if err := p.fs.RemoveAll(workspacePath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeleteFailed, workspacePath, err)
	}
	if p.fs.Exists(workspacePath) {
		return fmt.Errorf("%w: %s still present", ErrDeleteFailed, workspacePath)
	}
	return nil
}

// Orphans lists directories under root that are not in known.
func Orphans(fs system.FileSystem, root string, known map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var orphans []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !known[path] {
			orphans = append(orphans, path)
		}
	}
	return orphans, nil
}
