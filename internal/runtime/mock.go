package runtime

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// MockContainer is a container tracked by MockRuntime.
type MockContainer struct {
	ContainerInfo

	// Options are the options the container was created with.
	Options CreateOptions
}

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// Containers tracks the state of mock containers, keyed by reference
	Containers map[string]*MockContainer

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	// AttachExitCode and ExecExitCode are returned by Attach and Exec.
	AttachExitCode int
	ExecExitCode   int

	// OnCreate, when set, is called before a container is created. It runs
	// without the mock's lock held.
	OnCreate func(opts CreateOptions)

	nextRef int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Containers: make(map[string]*MockContainer),
		Errors:     make(map[string]error),
		CallLog:    make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// ClearError removes an injected error
func (m *MockRuntime) ClearError(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Errors, operation)
}

// AddContainer adds a container to the mock and returns its reference
func (m *MockRuntime) AddContainer(name string, status ContainerStatus, labels map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := m.newRef()
	m.Containers[ref] = &MockContainer{
		ContainerInfo: ContainerInfo{Ref: ref, Name: name, Status: status, Labels: labels},
	}
	return ref
}

// StopExternally marks a container stopped without recording a call, as if
// it had been stopped outside realm.
func (m *MockRuntime) StopExternally(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Containers[ref]; ok {
		c.Status = StatusStopped
	}
}

// RemoveExternally deletes a container without recording a call.
func (m *MockRuntime) RemoveExternally(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Containers, ref)
}

// ContainerByName returns the container with the given name, or nil.
func (m *MockRuntime) ContainerByName(name string) *MockContainer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.Containers {
		if c.Name == name {
			cp := *c
			return &cp
		}
	}
	return nil
}

// Count returns the number of existing containers
func (m *MockRuntime) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Containers)
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Reset clears all state
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers = make(map[string]*MockContainer)
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
}

func (m *MockRuntime) newRef() string {
	m.nextRef++
	return fmt.Sprintf("mock-%d", m.nextRef)
}

func (m *MockRuntime) lookup(ref string) (*MockContainer, error) {
	if c, ok := m.Containers[ref]; ok {
		return c, nil
	}
	for _, c := range m.Containers {
		if c.Name == ref {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, ErrContainerNotFound)
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return "mock"
}

// Check reports whether the mock is available
func (m *MockRuntime) Check(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Check")
	return m.Errors["Check"]
}

// Create creates a new stopped container
func (m *MockRuntime) Create(ctx context.Context, opts CreateOptions) (string, error) {
	if m.OnCreate != nil {
		m.OnCreate(opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create", opts)

	if err, ok := m.Errors["Create"]; ok {
		return "", err
	}
	for _, c := range m.Containers {
		if c.Name == opts.Name {
			return "", fmt.Errorf("container name %q is already in use", opts.Name)
		}
	}

	ref := m.newRef()
	m.Containers[ref] = &MockContainer{
		ContainerInfo: ContainerInfo{
			Ref:    ref,
			Name:   opts.Name,
			Image:  opts.Image,
			Status: StatusStopped,
			Labels: maps.Clone(opts.Labels),
		},
		Options: opts,
	}
	return ref, nil
}

// Start starts an existing container
func (m *MockRuntime) Start(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Start", ref)

	if err, ok := m.Errors["Start"]; ok {
		return err
	}
	c, err := m.lookup(ref)
	if err != nil {
		return err
	}
	c.Status = StatusRunning
	return nil
}

// Attach attaches to a running container
func (m *MockRuntime) Attach(ctx context.Context, ref string, detachKeys string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Attach", ref, detachKeys)

	if err, ok := m.Errors["Attach"]; ok {
		return -1, err
	}
	c, err := m.lookup(ref)
	if err != nil {
		return -1, err
	}
	if c.Status != StatusRunning {
		return -1, fmt.Errorf("cannot attach to stopped container %s", ref)
	}
	return m.AttachExitCode, nil
}

// Exec runs a command in a running container
func (m *MockRuntime) Exec(ctx context.Context, ref string, opts ExecOptions) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exec", ref, opts)

	if err, ok := m.Errors["Exec"]; ok {
		return -1, err
	}
	c, err := m.lookup(ref)
	if err != nil {
		return -1, err
	}
	if c.Status != StatusRunning {
		return -1, fmt.Errorf("container %s is not running", ref)
	}
	return m.ExecExitCode, nil
}

// Stop stops a container
func (m *MockRuntime) Stop(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stop", ref)

	if err, ok := m.Errors["Stop"]; ok {
		return err
	}
	c, err := m.lookup(ref)
	if err != nil {
		return err
	}
	c.Status = StatusStopped
	return nil
}

// Remove deletes a container; absent containers are ignored
func (m *MockRuntime) Remove(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Remove", ref)

	if err, ok := m.Errors["Remove"]; ok {
		return err
	}
	if c, err := m.lookup(ref); err == nil {
		delete(m.Containers, c.Ref)
	}
	return nil
}

// Inspect returns a copy of the container's state
func (m *MockRuntime) Inspect(ctx context.Context, ref string) (*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Inspect", ref)

	if err, ok := m.Errors["Inspect"]; ok {
		return nil, err
	}
	c, err := m.lookup(ref)
	if err != nil {
		return &ContainerInfo{Ref: ref, Status: StatusAbsent}, nil
	}
	info := c.ContainerInfo
	return &info, nil
}

// List returns the containers carrying the label key
func (m *MockRuntime) List(ctx context.Context, label string) ([]*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List", label)

	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}
	var infos []*ContainerInfo
	for _, c := range m.Containers {
		if _, ok := c.Labels[label]; ok {
			info := c.ContainerInfo
			infos = append(infos, &info)
		}
	}
	return infos, nil
}

// PrepareSocket records the socket permission fix
func (m *MockRuntime) PrepareSocket(ctx context.Context, image, socketPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PrepareSocket", image, socketPath)
	return m.Errors["PrepareSocket"]
}

var (
	_ Runtime        = (*MockRuntime)(nil)
	_ SocketPreparer = (*MockRuntime)(nil)
	_ Runtime        = (*DockerRuntime)(nil)
	_ SocketPreparer = (*DockerRuntime)(nil)
)
