package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// BoltRegistry is a Registry backed by a bbolt file. The database is opened
// per operation so the file lock is held only for the metadata access.
type BoltRegistry struct {
	path    string
	timeout time.Duration
}

// NewBoltRegistry returns a registry stored at path. timeout bounds the wait
// for another process's lock.
func NewBoltRegistry(path string, timeout time.Duration) *BoltRegistry {
	return &BoltRegistry{path: path, timeout: timeout}
}

// Path returns the database file.
func (r *BoltRegistry) Path() string {
	return r.path
}

func (r *BoltRegistry) open(ctx context.Context, readOnly bool) (*bolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	db, err := bolt.Open(r.path, 0o600, &bolt.Options{Timeout: r.timeout, ReadOnly: readOnly})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w", r.path, ErrLocked)
		}
		return nil, fmt.Errorf("failed to open registry %s: %w", r.path, err)
	}
	return db, nil
}

func (r *BoltRegistry) view(ctx context.Context, fn func(b *bolt.Bucket) error) error {
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		return fn(nil)
	}
	db, err := r.open(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucketSessions))
	})
}

func (r *BoltRegistry) update(ctx context.Context, fn func(b *bolt.Bucket) error) error {
	db, err := r.open(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSessions)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}
	return &s, nil
}

func (r *BoltRegistry) Get(ctx context.Context, name string) (*Session, error) {
	var out *Session
	err := r.view(ctx, func(b *bolt.Bucket) error {
		if b == nil {
			return ErrNotFound
		}
		data := b.Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRegistry) List(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	err := r.view(ctx, func(b *bolt.Bucket) error {
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			s, err := decodeSession(v)
			if err != nil {
				return err
			}
			sessions = append(sessions, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

func (r *BoltRegistry) Put(ctx context.Context, s *Session, opts PutOptions) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session %s: %w", s.Name, err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.update(ctx, func(b *bolt.Bucket) error {
		if opts.CreateOnly && b.Get([]byte(s.Name)) != nil {
			return fmt.Errorf("%s: %w", s.Name, ErrConflict)
		}
		return b.Put([]byte(s.Name), data)
	})
}

func (r *BoltRegistry) Update(ctx context.Context, name string, fn func(*Session) error) (*Session, error) {
	var out *Session
	err := r.update(ctx, func(b *bolt.Bucket) error {
		data := b.Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		current, err := decodeSession(data)
		if err != nil {
			return err
		}
		next, err := applyUpdate(current, fn)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		out = next
		return b.Put([]byte(name), encoded)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRegistry) Delete(ctx context.Context, name string) error {
	return r.update(ctx, func(b *bolt.Bucket) error {
		if b.Get([]byte(name)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(name))
	})
}
