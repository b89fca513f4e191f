// Package audit provides structured event logging for session lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per session.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/firefly-engineering/realm/internal/config"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventCreate   EventType = "create"
	EventStart    EventType = "start"
	EventAttach   EventType = "attach"
	EventExec     EventType = "exec"
	EventStop     EventType = "stop"
	EventRecreate EventType = "recreate"
	EventRemove   EventType = "remove"
	EventError    EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
	SessionID string    `json:"sessionId,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Recorder is the subset of Logger the orchestrator depends on.
type Recorder interface {
	Log(event Event) error
}

// Logger writes and reads audit events for sessions.
// Events are stored in {stateDir}/events/{name}.jsonl.
type Logger struct {
	paths *config.Paths
}

// NewLogger creates a new audit logger for the given state layout.
func NewLogger(paths *config.Paths) *Logger {
	return &Logger{paths: paths}
}

// Log appends an event to the session's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path, err := l.paths.EventsPath(event.Session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, session, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Session:   session,
		Details:   details,
	})
}

// Events reads all events for a session in chronological order.
func (l *Logger) Events(session string) ([]Event, error) {
	path, err := l.paths.EventsPath(session)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the audit log for a session.
func (l *Logger) Remove(session string) error {
	path, err := l.paths.EventsPath(session)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Discard is a Recorder that drops every event.
type Discard struct{}

func (Discard) Log(Event) error { return nil }
