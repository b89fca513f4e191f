package testutil

import (
	"testing"
	"time"

	"github.com/firefly-engineering/realm/internal/config"
)

func TestLoadValidSession(t *testing.T) {
	s, err := ValidSession()
	if err != nil {
		t.Fatalf("ValidSession() error: %v", err)
	}

	if s.Name != "alpha" {
		t.Errorf("Name = %q, want %q", s.Name, "alpha")
	}
	if s.Options.MountPath != "/alpha" {
		t.Errorf("MountPath = %q, want /alpha", s.Options.MountPath)
	}
	if len(s.Options.RuntimeArgs) != 2 {
		t.Errorf("RuntimeArgs = %v, want 2 entries", s.Options.RuntimeArgs)
	}

	if err := s.Validate(); err != nil {
		t.Errorf("Valid session should pass validation: %v", err)
	}
}

func TestLoadInvalidSession(t *testing.T) {
	s, err := InvalidSession()
	if err != nil {
		t.Fatalf("InvalidSession() error: %v", err)
	}

	if err := s.Validate(); err == nil {
		t.Error("Invalid session should fail validation")
	}
}

func TestSettingsFixture(t *testing.T) {
	s, err := config.LoadSettings(SettingsFixture(t))
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}

	if s.Dangling != config.DanglingRecreate {
		t.Errorf("Dangling = %q, want recreate", s.Dangling)
	}
	if s.CommandTimeout.Duration != 2*time.Minute {
		t.Errorf("CommandTimeout = %s, want 2m", s.CommandTimeout.Duration)
	}
	args, err := s.RuntimeArgList()
	if err != nil {
		t.Fatalf("RuntimeArgList() error: %v", err)
	}
	if len(args) != 4 || args[3] != "GREETING=hello world" {
		t.Errorf("RuntimeArgList() = %q", args)
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("nonexistent.json")
	if err == nil {
		t.Error("LoadFixture should error for nonexistent file")
	}
}
