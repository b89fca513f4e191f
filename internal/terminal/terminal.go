// Package terminal provides host terminal helpers used around interactive
// container sessions.
package terminal

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// resetSequence shows the cursor and clears text attributes. Container
// programs that exit or detach abnormally can leave either state behind.
const resetSequence = "\x1b[?25h\x1b[0m"

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether both stdin and stdout are terminals, which
// attaching to a TTY container requires.
func Interactive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// Restore writes the reset sequence to w.
func Restore(w io.Writer) {
	_, _ = io.WriteString(w, resetSequence)
}

// RestoreStdout restores the host terminal after an attach, if stdout is one.
func RestoreStdout() {
	if IsTerminal(os.Stdout) {
		Restore(os.Stdout)
	}
}
