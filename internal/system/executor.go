package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/firefly-engineering/realm/internal/logging"
)

var (
	// ErrNotFound is returned when the program is not on PATH.
	ErrNotFound = errors.New("executable not found")

	// ErrTimeout is returned when a captured command exceeds the executor timeout.
	ErrTimeout = errors.New("command timed out")
)

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Result  *Result
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.Result.ExitCode)
	if out := strings.TrimSpace(e.Result.Stderr); out != "" {
		msg += ": " + out
	}
	return msg
}

// ExitCode returns the exit code carried by err when it is an *ExitError,
// and -1 otherwise.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Result.ExitCode
	}
	return -1
}

// Executor implements CommandExecutor using os/exec.
type Executor struct {
	// Timeout bounds captured commands. Interactive commands run until
	// the user leaves them. Zero disables the limit.
	Timeout time.Duration
}

// NewExecutor returns an executor with the given capture timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{Timeout: timeout}
}

// Run executes cmd and waits for it to finish.
func (e *Executor) Run(ctx context.Context, cmd Command) (*Result, error) {
	if _, err := exec.LookPath(cmd.Name); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name, ErrNotFound)
	}

	if cmd.Mode == ModeCapture && e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	logging.Command("exec", cmd.Name, cmd.Args...)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = time.Second
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	switch cmd.Mode {
	case ModeInteractive:
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	default:
		c.Stdin = cmd.Stdin
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	err := c.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%s after %s: %w", cmd.String(), e.Timeout, ErrTimeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Command: strings.TrimSpace(cmd.Name + " " + firstArg(cmd.Args)), Result: result}
	}
	result.ExitCode = -1
	return result, fmt.Errorf("running %s: %w", cmd.Name, err)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
