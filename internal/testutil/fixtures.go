package testutil

import (
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/realm/internal/registry"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadSessionFixture loads a session record fixture.
func LoadSessionFixture(name string) (*registry.Session, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	var s registry.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ValidSession returns the valid session fixture.
func ValidSession() (*registry.Session, error) {
	return LoadSessionFixture("valid_session.json")
}

// InvalidSession returns a session whose workspace is its project and
// which has no container reference.
func InvalidSession() (*registry.Session, error) {
	return LoadSessionFixture("invalid_session.json")
}

// SettingsFixture writes the settings fixture into a temp dir and returns
// its path, for config.LoadSettings.
func SettingsFixture(t *testing.T) string {
	t.Helper()

	data, err := LoadFixture("settings.toml")
	if err != nil {
		t.Fatalf("Failed to load settings fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write settings fixture: %v", err)
	}
	return path
}
