package runtime

import "fmt"

// Mount is a bind mount from the host into the container
type Mount struct {
	// Source is the host path
	Source string

	// Target is the path inside the container
	Target string

	// ReadOnly makes the mount read-only
	ReadOnly bool
}

// DockerArg returns the -v value for the mount.
func (m Mount) DockerArg() string {
	s := fmt.Sprintf("%s:%s", m.Source, m.Target)
	if m.ReadOnly {
		s += ":ro"
	}
	return s
}

// ToDockerArgs converts mounts to Docker/Podman command line arguments
func ToDockerArgs(mounts []Mount) []string {
	var args []string
	for _, m := range mounts {
		args = append(args, "-v", m.DockerArg())
	}
	return args
}
