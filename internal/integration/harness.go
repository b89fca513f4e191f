package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/realm/internal/config"
	"github.com/firefly-engineering/realm/internal/runtime"
	"github.com/firefly-engineering/realm/internal/sandbox"
	"github.com/firefly-engineering/realm/internal/system"
	"github.com/firefly-engineering/realm/internal/testutil"
)

const (
	// EnvIntegration enables the tests in this package.
	EnvIntegration = "REALM_INTEGRATION_TESTS"

	// EnvTestImage overrides the image sessions are created from.
	EnvTestImage = "REALM_TEST_IMAGE"

	defaultTestImage = "docker.io/library/alpine:3"
)

// TestHarness provides utilities for integration testing with real containers.
type TestHarness struct {
	*testutil.TestEnv

	rt       runtime.Runtime
	orch     *sandbox.Orchestrator
	sessions []string
}

// Enabled reports whether integration tests were requested.
func Enabled() bool {
	return os.Getenv(EnvIntegration) != ""
}

// TestImage returns the image used for test sessions.
func TestImage() string {
	if img := os.Getenv(EnvTestImage); img != "" {
		return img
	}
	return defaultTestImage
}

// NewHarness creates a new test harness.
// It will skip the test if integration tests are disabled or no runtime responds.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if !Enabled() {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnvIntegration)
	}

	env := testutil.NewTestEnv(t)
	env.RequireGit()
	env.Settings.SSH = false
	env.Settings.MountGitconfig = false
	env.Settings.DefaultImage = TestImage()

	cfg := runtime.DefaultConfig()
	if kind := os.Getenv(config.EnvRuntime); kind != "" {
		cfg.Type = runtime.RuntimeType(kind)
	}
	rt, err := runtime.New(cfg, system.NewExecutor(5*time.Minute))
	if err != nil {
		t.Skipf("no container runtime available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Check(ctx); err != nil {
		t.Skipf("%s not responsive: %v", rt.Name(), err)
	}

	h := &TestHarness{TestEnv: env, rt: rt}
	h.orch = sandbox.New(sandbox.Deps{
		Paths:       env.Paths,
		Settings:    env.Settings,
		Registry:    env.Registry,
		Runtime:     rt,
		Provisioner: env.Provisioner,
		Events:      env.Events,
	})

	t.Cleanup(h.Cleanup)

	return h
}

// Runtime returns the container runtime.
func (h *TestHarness) Runtime() runtime.Runtime {
	return h.rt
}

// Orchestrator returns the orchestrator driving the real runtime.
func (h *TestHarness) Orchestrator() *sandbox.Orchestrator {
	return h.orch
}

// SessionName returns a unique session name with the given prefix and
// tracks it for cleanup.
func (h *TestHarness) SessionName(prefix string) string {
	name := prefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	h.sessions = append(h.sessions, name)
	return name
}

// Create creates a detached session on repo running a long sleep.
func (h *TestHarness) Create(name, repo string) *sandbox.Result {
	h.T.Helper()

	res, err := h.orch.CreateOrResume(context.Background(), name, sandbox.Options{
		ProjectDir: repo,
		Command:    []string{"sleep", "3600"},
		Detach:     true,
	})
	if err != nil {
		h.T.Fatalf("create %s failed: %v", name, err)
	}
	return res
}

// Status inspects the session's container.
func (h *TestHarness) Status(name string) runtime.ContainerStatus {
	h.T.Helper()

	s := h.GetSession(name)
	if s == nil {
		h.T.Fatalf("session %s has no record", name)
	}
	info, err := h.rt.Inspect(context.Background(), s.ContainerRef)
	if err != nil {
		h.T.Fatalf("inspect %s failed: %v", name, err)
	}
	return info.Status
}

// Cleanup removes all tracked sessions.
func (h *TestHarness) Cleanup() {
	ctx := context.Background()

	for _, name := range h.sessions {
		if _, err := h.orch.Remove(ctx, name); err != nil {
			h.T.Logf("Warning: failed to remove session %s: %v", name, err)
		}
	}
}
