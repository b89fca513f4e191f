// Package testutil provides test environments and fixtures.
//
// # Test Environment
//
// NewTestEnv builds a temp state root with a real bbolt registry, a real
// git provisioner, a session event log and a mock container runtime:
//
//	env := testutil.NewTestEnv(t)
//	repo := env.CreateRepo("alpha")
//	env.Runtime.SetError("Start", errors.New("boom"))
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_session.json
//	fixtures/invalid_session.json
//	fixtures/settings.toml
//
//	s, err := testutil.ValidSession()
//	path := testutil.SettingsFixture(t)
package testutil
