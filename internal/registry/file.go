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

	"golang.org/x/sys/unix"
)

const fileFormatVersion = 1

// document is the on-disk JSON layout of a FileRegistry.
type document struct {
	Version  int                 `json:"version"`
	Sessions map[string]*Session `json:"sessions"`
}

// FileRegistry is a Registry backed by one JSON file. Mutations hold an
// exclusive flock on path+".lock" for the whole read-modify-write; reads hold
// a shared one. Writes replace the file atomically.
type FileRegistry struct {
	path    string
	timeout time.Duration
}

// NewFileRegistry returns a registry stored at path.
func NewFileRegistry(path string, timeout time.Duration) *FileRegistry {
	return &FileRegistry{path: path, timeout: timeout}
}

// Path returns the registry file.
func (r *FileRegistry) Path() string {
	return r.path
}

// lock acquires the sidecar lock, polling until the timeout elapses.
func (r *FileRegistry) lock(ctx context.Context, exclusive bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	f, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry lock: %w", err)
	}

	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}

	var deadline time.Time
	if r.timeout > 0 {
		deadline = time.Now().Add(r.timeout)
	}
	for {
		err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("failed to lock registry: %w", err)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("%s: %w", r.path, ErrLocked)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}

	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

func (r *FileRegistry) read() (*document, error) {
	doc := &document{Version: fileFormatVersion, Sessions: map[string]*Session{}}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", r.path, err)
	}
	if doc.Version > fileFormatVersion {
		return nil, fmt.Errorf("registry %s has version %d, newer than supported %d", r.path, doc.Version, fileFormatVersion)
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*Session{}
	}
	return doc, nil
}

func (r *FileRegistry) write(doc *document) error {
	doc.Version = fileFormatVersion
	return writeJSONAtomic(r.path, doc)
}

// writeJSONAtomic writes v next to path and renames it into place, so a
// concurrent reader sees either the old or the new document.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	file, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	tmpName := file.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		file.Close()
		return err
	}
	if err := file.Chmod(0o600); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (r *FileRegistry) withRead(ctx context.Context, fn func(doc *document) error) error {
	unlock, err := r.lock(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := r.read()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (r *FileRegistry) withWrite(ctx context.Context, fn func(doc *document) error) error {
	unlock, err := r.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := r.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return r.write(doc)
}

func (r *FileRegistry) Get(ctx context.Context, name string) (*Session, error) {
	var out *Session
	err := r.withRead(ctx, func(doc *document) error {
		s, ok := doc.Sessions[name]
		if !ok {
			return ErrNotFound
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FileRegistry) List(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	err := r.withRead(ctx, func(doc *document) error {
		for _, s := range doc.Sessions {
			sessions = append(sessions, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

func (r *FileRegistry) Put(ctx context.Context, s *Session, opts PutOptions) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session %s: %w", s.Name, err)
	}
	return r.withWrite(ctx, func(doc *document) error {
		if _, exists := doc.Sessions[s.Name]; exists && opts.CreateOnly {
			return fmt.Errorf("%s: %w", s.Name, ErrConflict)
		}
		doc.Sessions[s.Name] = s.Clone()
		return nil
	})
}

func (r *FileRegistry) Update(ctx context.Context, name string, fn func(*Session) error) (*Session, error) {
	var out *Session
	err := r.withWrite(ctx, func(doc *document) error {
		current, ok := doc.Sessions[name]
		if !ok {
			return ErrNotFound
		}
		next, err := applyUpdate(current, fn)
		if err != nil {
			return err
		}
		doc.Sessions[name] = next
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FileRegistry) Delete(ctx context.Context, name string) error {
	return r.withWrite(ctx, func(doc *document) error {
		if _, ok := doc.Sessions[name]; !ok {
			return ErrNotFound
		}
		delete(doc.Sessions, name)
		return nil
	})
}
