package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a name.
	ErrNotFound = errors.New("session not found")

	// ErrConflict is returned by a create-only Put when the name is taken.
	ErrConflict = errors.New("session already exists")

	// ErrLocked is returned when the store lock could not be acquired in time.
	ErrLocked = errors.New("registry is locked by another process")
)

// PutOptions controls Put.
type PutOptions struct {
	// CreateOnly makes Put fail with ErrConflict if the name exists.
	CreateOnly bool
}

// Registry is the durable name -> Session mapping.
type Registry interface {
	// Get returns the record for name or ErrNotFound.
	Get(ctx context.Context, name string) (*Session, error)

	// List returns all records, oldest first.
	List(ctx context.Context) ([]*Session, error)

	// Put inserts or fully overwrites a record.
	Put(ctx context.Context, s *Session, opts PutOptions) error

	// Update applies fn to the stored record under one lock and persists
	// the result. An error from fn aborts without writing.
	Update(ctx context.Context, name string, fn func(*Session) error) (*Session, error)

	// Delete removes the record for name or returns ErrNotFound.
	Delete(ctx context.Context, name string) error
}

// Open returns the registry backend named by backend ("bolt" or "json").
func Open(backend, path string, lockTimeout time.Duration) (Registry, error) {
	switch backend {
	case "", "bolt":
		return NewBoltRegistry(path, lockTimeout), nil
	case "json":
		return NewFileRegistry(path, lockTimeout), nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", backend)
	}
}

// sortSessions orders by creation time, then name.
func sortSessions(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].Name < sessions[j].Name
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}

// applyUpdate runs fn on a copy and checks the result is still the same record.
func applyUpdate(current *Session, fn func(*Session) error) (*Session, error) {
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if next.Name != current.Name {
		return nil, fmt.Errorf("update cannot rename %s to %s", current.Name, next.Name)
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session %s: %w", next.Name, err)
	}
	return next, nil
}
