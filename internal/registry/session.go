package registry

import (
	"fmt"
	"path/filepath"
	"time"
)

// RuntimeOptions is the snapshot needed to rebuild a session's container.
// MountPath, Env and Command are fixed at creation. SSH and RuntimeArgs
// hold the values used on the most recent start and are refreshed on resume.
type RuntimeOptions struct {
	MountPath   string   `json:"mountPath"`
	Env         []string `json:"env,omitempty"`
	Command     []string `json:"command,omitempty"`
	SSH         bool     `json:"ssh"`
	RuntimeArgs []string `json:"runtimeArgs,omitempty"`
}

// Session is the persisted record of one session. Its live status is never
// stored; ask the runtime.
type Session struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ProjectPath   string         `json:"projectPath"`
	WorkspacePath string         `json:"workspacePath"`
	Image         string         `json:"image"`
	ContainerRef  string         `json:"containerRef,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastUsedAt    time.Time      `json:"lastUsedAt,omitempty"`
	Options       RuntimeOptions `json:"runtimeOptions"`

	// CreatingPID is set while the create path owns the record.
	CreatingPID int `json:"creatingPid,omitempty"`
}

// Creating reports whether the record is a reservation for a create that has
// not finished.
func (s *Session) Creating() bool {
	return s.CreatingPID != 0
}

// Validate checks that the Session is valid.
func (s *Session) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !filepath.IsAbs(s.ProjectPath) {
		return fmt.Errorf("projectPath must be absolute (got %q)", s.ProjectPath)
	}
	if !filepath.IsAbs(s.WorkspacePath) {
		return fmt.Errorf("workspacePath must be absolute (got %q)", s.WorkspacePath)
	}
	if filepath.Clean(s.WorkspacePath) == filepath.Clean(s.ProjectPath) {
		return fmt.Errorf("workspacePath cannot be the project itself")
	}
	if s.Image == "" {
		return fmt.Errorf("image is required")
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt is required")
	}
	if !s.Creating() && s.ContainerRef == "" {
		return fmt.Errorf("containerRef is required once creation has finished")
	}
	return nil
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Options.Env = append([]string(nil), s.Options.Env...)
	c.Options.Command = append([]string(nil), s.Options.Command...)
	c.Options.RuntimeArgs = append([]string(nil), s.Options.RuntimeArgs...)
	return &c
}
