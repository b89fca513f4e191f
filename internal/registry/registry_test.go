package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type backend struct {
	name string
	open func(t *testing.T) Registry
}

func backends() []backend {
	return []backend{
		{"bolt", func(t *testing.T) Registry {
			return NewBoltRegistry(filepath.Join(t.TempDir(), "registry.db"), 5*time.Second)
		}},
		{"json", func(t *testing.T) Registry {
			return NewFileRegistry(filepath.Join(t.TempDir(), "registry.json"), 5*time.Second)
		}},
	}
}

func testSession(name string, created time.Time) *Session {
	return &Session{
		ID:            "id-" + name,
		Name:          name,
		ProjectPath:   "/src/project",
		WorkspacePath: "/state/workspaces/" + name,
		Image:         "alpine/git",
		ContainerRef:  "ref-" + name,
		CreatedAt:     created,
		Options: RuntimeOptions{
			MountPath: "/project",
			Env:       []string{"A=1"},
			SSH:       true,
		},
	}
}

func TestRegistry_EmptyStore(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()

			sessions, err := reg.List(ctx)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if len(sessions) != 0 {
				t.Errorf("List returned %d sessions, want 0", len(sessions))
			}

			if _, err := reg.Get(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get error = %v, want ErrNotFound", err)
			}
			if err := reg.Delete(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete error = %v, want ErrNotFound", err)
			}
			if _, err := reg.Update(ctx, "alpha", func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestRegistry_PutGetDelete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()
			created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			if err := reg.Put(ctx, testSession("alpha", created), PutOptions{}); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			got, err := reg.Get(ctx, "alpha")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.Image != "alpine/git" || got.ContainerRef != "ref-alpha" {
				t.Errorf("Get = %+v", got)
			}
			if !got.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
			}
			if len(got.Options.Env) != 1 || got.Options.Env[0] != "A=1" {
				t.Errorf("Options.Env = %v", got.Options.Env)
			}

			if err := reg.Delete(ctx, "alpha"); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, err := reg.Get(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestRegistry_CreateOnlyConflict(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()
			s := testSession("alpha", time.Now())

			if err := reg.Put(ctx, s, PutOptions{CreateOnly: true}); err != nil {
				t.Fatalf("first Put error: %v", err)
			}

			other := testSession("alpha", time.Now())
			other.Image = "ubuntu:latest"
			if err := reg.Put(ctx, other, PutOptions{CreateOnly: true}); !errors.Is(err, ErrConflict) {
				t.Fatalf("second Put error = %v, want ErrConflict", err)
			}

			got, _ := reg.Get(ctx, "alpha")
			if got.Image != "alpine/git" {
				t.Errorf("conflicting Put overwrote image: %q", got.Image)
			}

			if err := reg.Put(ctx, other, PutOptions{}); err != nil {
				t.Fatalf("overwrite Put error: %v", err)
			}
			got, _ = reg.Get(ctx, "alpha")
			if got.Image != "ubuntu:latest" {
				t.Errorf("overwrite Put image = %q", got.Image)
			}
		})
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()
			base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

			for _, s := range []*Session{
				testSession("charlie", base.Add(2*time.Hour)),
				testSession("alpha", base.Add(time.Hour)),
				testSession("zulu", base),
				testSession("bravo", base.Add(time.Hour)),
			} {
				if err := reg.Put(ctx, s, PutOptions{}); err != nil {
					t.Fatalf("Put(%s) error: %v", s.Name, err)
				}
			}

			sessions, err := reg.List(ctx)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			want := []string{"zulu", "alpha", "bravo", "charlie"}
			if len(sessions) != len(want) {
				t.Fatalf("List returned %d sessions, want %d", len(sessions), len(want))
			}
			for i, name := range want {
				if sessions[i].Name != name {
					t.Errorf("List[%d] = %s, want %s", i, sessions[i].Name, name)
				}
			}
		})
	}
}

func TestRegistry_Update(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()
			if err := reg.Put(ctx, testSession("alpha", time.Now()), PutOptions{}); err != nil {
				t.Fatal(err)
			}

			updated, err := reg.Update(ctx, "alpha", func(s *Session) error {
				s.ContainerRef = "new-ref"
				s.Options.RuntimeArgs = []string{"--privileged"}
				return nil
			})
			if err != nil {
				t.Fatalf("Update error: %v", err)
			}
			if updated.ContainerRef != "new-ref" {
				t.Errorf("Update returned ref %q", updated.ContainerRef)
			}

			got, _ := reg.Get(ctx, "alpha")
			if got.ContainerRef != "new-ref" || len(got.Options.RuntimeArgs) != 1 {
				t.Errorf("stored record = %+v", got)
			}

			abort := errors.New("abort")
			if _, err := reg.Update(ctx, "alpha", func(s *Session) error {
				s.Image = "changed"
				return abort
			}); !errors.Is(err, abort) {
				t.Errorf("Update error = %v, want abort", err)
			}
			got, _ = reg.Get(ctx, "alpha")
			if got.Image != "alpine/git" {
				t.Errorf("aborted Update was persisted: image %q", got.Image)
			}

			if _, err := reg.Update(ctx, "alpha", func(s *Session) error {
				s.Name = "beta"
				return nil
			}); err == nil {
				t.Error("Update should refuse to rename")
			}
		})
	}
}

func TestRegistry_PutRejectsInvalid(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			s := testSession("alpha", time.Now())
			s.WorkspacePath = s.ProjectPath
			if err := reg.Put(context.Background(), s, PutOptions{}); err == nil {
				t.Error("Put should reject a workspace equal to the project")
			}
		})
	}
}

func TestRegistry_ReservationWithoutRef(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()
			s := testSession("alpha", time.Now())
			s.ContainerRef = ""
			s.CreatingPID = os.Getpid()

			if err := reg.Put(ctx, s, PutOptions{CreateOnly: true}); err != nil {
				t.Fatalf("reservation Put error: %v", err)
			}

			if _, err := reg.Update(ctx, "alpha", func(s *Session) error {
				s.CreatingPID = 0
				return nil
			}); err == nil {
				t.Error("finishing a reservation without a container ref should fail validation")
			}
		})
	}
}

func TestRegistry_ConcurrentCreateOnly(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()

			const workers = 8
			var wg sync.WaitGroup
			var mu sync.Mutex
			successes, conflicts := 0, 0

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					s := testSession("race", time.Now())
					s.ID = fmt.Sprintf("id-%d", i)
					err := reg.Put(ctx, s, PutOptions{CreateOnly: true})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, ErrConflict):
						conflicts++
					default:
						t.Errorf("Put error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			if successes != 1 {
				t.Errorf("successes = %d, want 1", successes)
			}
			if conflicts != workers-1 {
				t.Errorf("conflicts = %d, want %d", conflicts, workers-1)
			}
		})
	}
}

func TestRegistry_ConcurrentUpdatesNotLost(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			reg := b.open(t)
			ctx := context.Background()
			if err := reg.Put(ctx, testSession("counter", time.Now()), PutOptions{}); err != nil {
				t.Fatal(err)
			}

			const workers = 10
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := reg.Update(ctx, "counter", func(s *Session) error {
						s.Options.Env = append(s.Options.Env, fmt.Sprintf("W%d=1", i))
						return nil
					})
					if err != nil {
						t.Errorf("Update error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			got, err := reg.Get(ctx, "counter")
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Options.Env) != workers+1 {
				t.Errorf("Env has %d entries, want %d (lost updates)", len(got.Options.Env), workers+1)
			}
		})
	}
}

func TestFileRegistry_AtomicReplaceLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	reg := NewFileRegistry(filepath.Join(dir, "registry.json"), time.Second)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := reg.Put(ctx, testSession(name, time.Now()), PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" && e.Name() != "registry.json" {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFileRegistry_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "sessions": {}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	reg := NewFileRegistry(path, time.Second)
	if _, err := reg.List(context.Background()); err == nil {
		t.Error("List should reject a newer format version")
	}
}

func TestFileRegistry_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	holder := NewFileRegistry(path, time.Second)
	unlock, err := holder.lock(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	waiter := NewFileRegistry(path, 100*time.Millisecond)
	if _, err := waiter.List(context.Background()); !errors.Is(err, ErrLocked) {
		t.Errorf("List error = %v, want ErrLocked", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	if reg, err := Open("bolt", filepath.Join(dir, "r.db"), time.Second); err != nil {
		t.Errorf("Open(bolt) error: %v", err)
	} else if _, ok := reg.(*BoltRegistry); !ok {
		t.Errorf("Open(bolt) = %T", reg)
	}
	if reg, err := Open("json", filepath.Join(dir, "r.json"), time.Second); err != nil {
		t.Errorf("Open(json) error: %v", err)
	} else if _, ok := reg.(*FileRegistry); !ok {
		t.Errorf("Open(json) = %T", reg)
	}
	if _, err := Open("sqlite", "x", time.Second); err == nil {
		t.Error("Open should reject an unknown backend")
	}
}
