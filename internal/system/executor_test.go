package system

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecutor_Capture(t *testing.T) {
	requireSh(t)

	res, err := NewExecutor(0).Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Stdout != "out\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "out\n")
	}
	if res.Stderr != "err\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "err\n")
	}
}

func TestExecutor_EnvAndDir(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()

	res, err := NewExecutor(0).Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo $REALM_TEST_VALUE; pwd"},
		Env:  []string{"REALM_TEST_VALUE=42"},
		Dir:  dir,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.HasPrefix(res.Stdout, "42\n") {
		t.Errorf("Stdout = %q, want env value first", res.Stdout)
	}
	if !strings.Contains(res.Stdout, dir) && !strings.Contains(res.Stdout, "/private"+dir) {
		t.Errorf("Stdout = %q, want working dir %s", res.Stdout, dir)
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	requireSh(t)

	res, err := NewExecutor(0).Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo broken >&2; exit 7"},
	})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run error = %v, want *ExitError", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", res.ExitCode)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q should carry stderr", err.Error())
	}
}

func TestExecutor_NotFound(t *testing.T) {
	_, err := NewExecutor(0).Run(context.Background(), Command{Name: "realm-definitely-not-a-binary"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Run error = %v, want ErrNotFound", err)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	requireSh(t)

	_, err := NewExecutor(50*time.Millisecond).Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "exec sleep 5"},
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Run error = %v, want ErrTimeout", err)
	}
}
