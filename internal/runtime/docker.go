package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/system"
)

// DockerRuntime implements the Runtime interface using the Docker or Podman CLI.
type DockerRuntime struct {
	// Command is the container command to use (docker or podman)
	Command string

	exec system.CommandExecutor
}

// NewDockerRuntime creates a runtime that runs command through exec.
func NewDockerRuntime(command string, exec system.CommandExecutor) *DockerRuntime {
	return &DockerRuntime{Command: command, exec: exec}
}

// Name returns the runtime identifier
func (r *DockerRuntime) Name() string {
	return r.Command
}

// runCmd executes a captured docker/podman command and returns stdout.
func (r *DockerRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	res, err := r.exec.Run(ctx, system.Command{Name: r.Command, Args: args})
	if err != nil {
		if res != nil && isNoSuchContainer(res.Stderr) {
			return "", fmt.Errorf("%s %s: %w", r.Command, args[0], ErrContainerNotFound)
		}
		return "", fmt.Errorf("%s %s failed: %w", r.Command, args[0], err)
	}
	return res.Stdout, nil
}

// runInteractive executes a command attached to the terminal and returns
// its exit status. A non-zero status is not an error.
func (r *DockerRuntime) runInteractive(ctx context.Context, args ...string) (int, error) {
	res, err := r.exec.Run(ctx, system.Command{Name: r.Command, Args: args, Mode: system.ModeInteractive})
	if err != nil {
		var exitErr *system.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Result.ExitCode, nil
		}
		return -1, fmt.Errorf("%s %s failed: %w", r.Command, args[0], err)
	}
	return res.ExitCode, nil
}

func isNoSuchContainer(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such container") || strings.Contains(s, "no such object")
}

// Check verifies the CLI is installed and the daemon answers
func (r *DockerRuntime) Check(ctx context.Context) error {
	_, err := r.exec.Run(ctx, system.Command{
		Name: r.Command,
		Args: []string{"version", "--format", "{{.Server.Version}}"},
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, system.ErrNotFound) {
		return fmt.Errorf("%w: %s is not installed", ErrUnavailable, r.Command)
	}
	return fmt.Errorf("%w: %s daemon is not running: %v", ErrUnavailable, r.Command, err)
}

// CreateArgs builds the argument list for Create.
func (r *DockerRuntime) CreateArgs(opts CreateOptions) []string {
	args := []string{"create", "--interactive", "--tty", "--name", opts.Name}
	if opts.Hostname != "" {
		args = append(args, "--hostname", opts.Hostname)
	}

	keys := make([]string, 0, len(opts.Labels))
	for k := range opts.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", k+"="+opts.Labels[k])
	}

	args = append(args, ToDockerArgs(opts.Mounts)...)
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	args = append(args, opts.ExtraArgs...)
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}

	args = append(args, opts.Image)
	args = append(args, opts.Command...)
	return args
}

// Create creates a new container and returns its ID
func (r *DockerRuntime) Create(ctx context.Context, opts CreateOptions) (string, error) {
	logging.Debug("creating container", "name", opts.Name, "image", opts.Image)
	out, err := r.runCmd(ctx, r.CreateArgs(opts)...)
	if err != nil {
		return "", err
	}
	ref := strings.TrimSpace(out)
	if i := strings.LastIndex(ref, "\n"); i >= 0 {
		// Image pull progress can precede the ID.
		ref = strings.TrimSpace(ref[i+1:])
	}
	if ref == "" {
		return "", fmt.Errorf("%s create returned no container id", r.Command)
	}
	return ref, nil
}

// Start starts an existing container
func (r *DockerRuntime) Start(ctx context.Context, ref string) error {
	logging.Debug("starting container", "ref", ref)
	_, err := r.runCmd(ctx, "start", ref)
	return err
}

// Attach attaches the terminal to a running container
func (r *DockerRuntime) Attach(ctx context.Context, ref string, detachKeys string) (int, error) {
	args := []string{"attach"}
	if detachKeys != "" {
		args = append(args, "--detach-keys", detachKeys)
	}
	args = append(args, ref)
	return r.runInteractive(ctx, args...)
}

// ExecArgs builds the argument list for Exec.
func (r *DockerRuntime) ExecArgs(ref string, opts ExecOptions) []string {
	args := []string{"exec", "--interactive", "--tty"}
	if opts.DetachKeys != "" {
		args = append(args, "--detach-keys", opts.DetachKeys)
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	args = append(args, ref)
	return append(args, opts.Command...)
}

// Exec runs a command in a running container with a TTY
func (r *DockerRuntime) Exec(ctx context.Context, ref string, opts ExecOptions) (int, error) {
	return r.runInteractive(ctx, r.ExecArgs(ref, opts)...)
}

// Stop stops a running container
func (r *DockerRuntime) Stop(ctx context.Context, ref string) error {
	logging.Debug("stopping container", "ref", ref)
	_, err := r.runCmd(ctx, "stop", ref)
	return err
}

// Remove force-removes a container, ignoring containers that are already gone
func (r *DockerRuntime) Remove(ctx context.Context, ref string) error {
	logging.Debug("removing container", "ref", ref)
	_, err := r.runCmd(ctx, "rm", "-f", ref)
	if errors.Is(err, ErrContainerNotFound) {
		return nil
	}
	return err
}

// dockerInspect holds the relevant fields from docker/podman inspect
type dockerInspect struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	State struct {
		Status  string `json:"Status"`
		Running bool   `json:"Running"`
	} `json:"State"`
	Config struct {
		Image  string            `json:"Image"`
		Labels map[string]string `json:"Labels"`
	} `json:"Config"`
}

func (d dockerInspect) info() *ContainerInfo {
	info := &ContainerInfo{
		Ref:    d.ID,
		Name:   strings.TrimPrefix(d.Name, "/"),
		Image:  d.Config.Image,
		Labels: d.Config.Labels,
		Status: StatusStopped,
	}
	if d.State.Running || d.State.Status == "running" {
		info.Status = StatusRunning
	}
	return info
}

func parseInspect(output string) ([]*ContainerInfo, error) {
	var inspects []dockerInspect
	if err := json.Unmarshal([]byte(output), &inspects); err != nil {
		return nil, fmt.Errorf("failed to parse inspect output: %w", err)
	}
	infos := make([]*ContainerInfo, 0, len(inspects))
	for _, in := range inspects {
		infos = append(infos, in.info())
	}
	return infos, nil
}

// Inspect returns the live state of a container
func (r *DockerRuntime) Inspect(ctx context.Context, ref string) (*ContainerInfo, error) {
	out, err := r.runCmd(ctx, "inspect", "--type", "container", ref)
	if errors.Is(err, ErrContainerNotFound) {
		return &ContainerInfo{Ref: ref, Status: StatusAbsent}, nil
	}
	if err != nil {
		return nil, err
	}

	infos, err := parseInspect(out)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return &ContainerInfo{Ref: ref, Status: StatusAbsent}, nil
	}
	return infos[0], nil
}

// List returns all containers carrying the label key
func (r *DockerRuntime) List(ctx context.Context, label string) ([]*ContainerInfo, error) {
	out, err := r.runCmd(ctx, "ps", "-a", "-q", "--no-trunc", "--filter", "label="+label)
	if err != nil {
		return nil, err
	}
	ids := strings.Fields(out)
	if len(ids) == 0 {
		return nil, nil
	}

	out, err = r.runCmd(ctx, append([]string{"inspect", "--type", "container"}, ids...)...)
	if err != nil {
		return nil, err
	}
	return parseInspect(out)
}

// PrepareSocket makes socketPath inside the runtime VM world-accessible by
// running a throwaway root container that shares it.
func (r *DockerRuntime) PrepareSocket(ctx context.Context, image, socketPath string) error {
	mount := Mount{Source: socketPath, Target: socketPath}
	_, err := r.runCmd(ctx, "run", "--rm", "--user", "root", "--entrypoint", "chmod",
		"-v", mount.DockerArg(), image, "666", socketPath)
	return err
}
