package sandbox

import (
	"github.com/firefly-engineering/realm/internal/registry"
	"github.com/firefly-engineering/realm/internal/runtime"
)

// Options holds the caller's request for CreateOrResume.
type Options struct {
	// Image, MountPath, ProjectDir and Env only apply when the session is
	// created. They are reported in Result.Ignored on resume.
	Image      string
	MountPath  string
	ProjectDir string
	Env        []string

	// Command is the container's main command on create, and a command to
	// exec in the running container on resume.
	Command []string

	// RuntimeArgs replaces the configured extra runtime arguments when
	// RuntimeArgsSet is true.
	RuntimeArgs    []string
	RuntimeArgsSet bool

	// NoSSH disables agent forwarding for this invocation.
	NoSSH bool

	// Detach starts the container without attaching the terminal.
	Detach bool

	// Recreate rebuilds a dangling session regardless of the configured policy.
	Recreate bool
}

// Action describes what CreateOrResume did. A stopped session resumed with
// the terminal attached reports ActionAttached or ActionExec; ActionStarted
// is only reported for a detached start.
type Action string

const (
	ActionCreated        Action = "created"
	ActionStarted        Action = "started"
	ActionAttached       Action = "attached"
	ActionExec           Action = "exec"
	ActionAlreadyRunning Action = "already-running"
	ActionRecreated      Action = "recreated"
)

// Result holds the outcome of a successful CreateOrResume.
type Result struct {
	Session *registry.Session
	Action  Action

	// ExitCode is the exit status of the attached or executed process.
	ExitCode int

	// Ignored names create-time options that were passed on resume.
	Ignored []string

	// Warnings are non-fatal problems, such as a missing SSH agent.
	Warnings []string
}

// Status is the live state of a session shown by List.
type Status string

const (
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusAbsent   Status = "absent"
	StatusCreating Status = "creating"
	StatusUnknown  Status = "unknown"
)

// SessionView is a registry entry enriched with live runtime status.
type SessionView struct {
	Session *registry.Session `json:"session"`
	Status  Status            `json:"status"`
}

// RemoveResult reports what Remove cleaned up.
type RemoveResult struct {
	Name string

	// Existed is false when no record was found.
	Existed bool

	// Cleaned lists the resources that were removed.
	Cleaned []string
}

// GCReport lists state that no longer lines up between the registry, the
// workspaces directory and the runtime.
type GCReport struct {
	// Dangling sessions have a record but no container or workspace.
	Dangling []string

	// Interrupted sessions are reservations left by a create that died.
	Interrupted []string

	// OrphanWorkspaces are workspace directories with no record.
	OrphanWorkspaces []string

	// OrphanContainers are labelled containers with no record.
	OrphanContainers []*runtime.ContainerInfo

	// Removed lists what was deleted when GC ran with force.
	Removed []string
}

// Empty reports whether GC found nothing.
func (r *GCReport) Empty() bool {
	return len(r.Dangling) == 0 && len(r.Interrupted) == 0 &&
		len(r.OrphanWorkspaces) == 0 && len(r.OrphanContainers) == 0
}
