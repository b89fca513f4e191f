package terminal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRestore(t *testing.T) {
	var buf bytes.Buffer
	Restore(&buf)

	if got := buf.String(); got != "\x1b[?25h\x1b[0m" {
		t.Errorf("Restore() wrote %q", got)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("IsTerminal(nil) = true")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("IsTerminal(regular file) = true")
	}
}
