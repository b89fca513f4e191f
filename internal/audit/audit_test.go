package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firefly-engineering/realm/internal/config"
)

func newTestLogger(t *testing.T) (*Logger, *config.Paths) {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	return NewLogger(paths), paths
}

func TestLogger_LogAndEvents(t *testing.T) {
	logger, paths := newTestLogger(t)

	now := time.Now().Truncate(time.Millisecond)

	events := []Event{
		{Timestamp: now, Type: EventCreate, Session: "alpha", SessionID: "id-1", Details: "image=alpine/git"},
		{Timestamp: now.Add(time.Second), Type: EventStart, Session: "alpha"},
		{Timestamp: now.Add(2 * time.Second), Type: EventAttach, Session: "alpha"},
		{Timestamp: now.Add(3 * time.Second), Type: EventStop, Session: "alpha"},
	}

	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	if _, err := os.Stat(filepath.Join(paths.EventsDir, "alpha.jsonl")); err != nil {
		t.Errorf("event file not created: %v", err)
	}

	result, err := logger.Events("alpha")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	if len(result) != len(events) {
		t.Fatalf("got %d events, want %d", len(result), len(events))
	}

	for i, e := range result {
		if e.Type != events[i].Type {
			t.Errorf("event %d: type = %q, want %q", i, e.Type, events[i].Type)
		}
		if e.Details != events[i].Details {
			t.Errorf("event %d: details = %q, want %q", i, e.Details, events[i].Details)
		}
	}
	if result[0].SessionID != "id-1" {
		t.Errorf("session id = %q, want id-1", result[0].SessionID)
	}
}

func TestLogger_EventsEmpty(t *testing.T) {
	logger, _ := newTestLogger(t)

	result, err := logger.Events("nonexistent")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	if len(result) != 0 {
		t.Errorf("got %d events, want 0", len(result))
	}
}

func TestLogger_LogEvent(t *testing.T) {
	logger, _ := newTestLogger(t)

	if err := logger.LogEvent(EventRecreate, "beta", "ref=abc"); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	events, err := logger.Events("beta")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be set automatically")
	}
}

func TestLogger_SkipsMalformedLines(t *testing.T) {
	logger, paths := newTestLogger(t)

	logger.LogEvent(EventCreate, "gamma", "")
	path, _ := paths.EventsPath("gamma")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n\n")
	f.Close()
	logger.LogEvent(EventStop, "gamma", "")

	events, err := logger.Events("gamma")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestLogger_Remove(t *testing.T) {
	logger, _ := newTestLogger(t)

	logger.LogEvent(EventCreate, "removable", "")

	if err := logger.Remove("removable"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	events, err := logger.Events("removable")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events after remove, want 0", len(events))
	}

	// Removing again is not an error
	if err := logger.Remove("removable"); err != nil {
		t.Errorf("Remove should not error for nonexistent: %v", err)
	}
}
