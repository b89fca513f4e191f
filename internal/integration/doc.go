// Package integration runs session workflows against a real container
// runtime and real git repositories.
//
// Tests are skipped unless REALM_INTEGRATION_TESTS is set. They require:
//   - docker or podman, with a responsive daemon or service
//   - git
//   - the test image, pulled or pullable (REALM_TEST_IMAGE, default alpine)
//
// The runtime is auto-detected; set REALM_RUNTIME to pick one.
//
// # Test Harness
//
//	func TestMyWorkflow(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if disabled or no runtime
//
//	    repo := h.CreateRepo("project")
//	    name := h.SessionName("demo")
//	    h.Create(name, repo)
//
//	    // Drive h.Orchestrator(), inspect with h.Runtime()...
//	}
//
// Sessions created through the harness are removed by t.Cleanup, and
// session names carry a random suffix so runs never touch real sessions.
//
// # Running Integration Tests
//
//	REALM_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
