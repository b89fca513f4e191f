package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

func TestSuggestName(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		existing map[string]bool
		want     string
	}{
		{"basename", "/home/user/api", nil, "api"},
		{"sanitised", "/home/user/My Project.v2", nil, "my-project-v2"},
		{"taken", "/src/api", map[string]bool{"api": true, "api-2": true}, "api-3"},
		{"reserved", "/src/ls", nil, "session"},
		{"no usable characters", "/src/___", nil, "session"},
		{"no directory", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := suggestName(tt.dir, tt.existing); got != tt.want {
				t.Errorf("suggestName(%q) = %q, want %q", tt.dir, got, tt.want)
			}
		})
	}
}

func TestWizardCompletes(t *testing.T) {
	w := newWizardModel("alpine/git", "api", nil)

	done, created, _ := w.Update(enterKey)
	if done || w.step != stepImage {
		t.Fatalf("enter on a valid name should advance, step = %v", w.step)
	}

	done, created, _ = w.Update(enterKey)
	if !done || created == nil {
		t.Fatal("enter on the image step should finish")
	}
	if created.Name != "api" || created.Image != "" {
		t.Errorf("created = %+v, want api with default image", created)
	}
}

func TestWizardRejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"empty", "", "required"},
		{"invalid", "bad name", "letters"},
		{"reserved", "rm", "reserved"},
		{"existing", "taken", "already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWizardModel("alpine/git", tt.value, map[string]bool{"taken": true})

			done, _, _ := w.Update(enterKey)
			if done || w.step != stepName {
				t.Fatal("an invalid name must keep the name step")
			}
			if !strings.Contains(w.err, tt.wantErr) {
				t.Errorf("err = %q, want it to mention %q", w.err, tt.wantErr)
			}
			if !strings.Contains(w.View(), w.err) {
				t.Error("the error should be rendered")
			}
		})
	}
}

func TestWizardBackAndCancel(t *testing.T) {
	w := newWizardModel("alpine/git", "api", nil)
	w.Update(enterKey)

	done, created, _ := w.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if done || created != nil || w.step != stepName {
		t.Error("esc on the image step should go back to the name")
	}

	done, created, _ = w.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !done || created != nil {
		t.Error("esc on the name step should cancel")
	}

	w = newWizardModel("alpine/git", "api", nil)
	w.Update(enterKey)
	done, created, _ = w.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !done || created != nil {
		t.Error("ctrl+c should cancel from any step")
	}
}

func TestWizardView(t *testing.T) {
	w := newWizardModel("alpine/git", "api", nil)
	if view := w.View(); !strings.Contains(view, "Session name:") {
		t.Errorf("name step view = %q", view)
	}

	w.Update(enterKey)
	view := w.View()
	if !strings.Contains(view, "Image") || !strings.Contains(view, "api") {
		t.Errorf("image step view = %q", view)
	}
}
