package tui

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func TestBuildGroupedItems(t *testing.T) {
	now := time.Now()

	t.Run("empty", func(t *testing.T) {
		if items := buildGroupedItems(nil, now); items != nil {
			t.Errorf("expected nil, got %d items", len(items))
		}
	})

	t.Run("groups by project in path order", func(t *testing.T) {
		entries := []Entry{
			{Name: "web", ProjectPath: "/src/zeta"},
			{Name: "api", ProjectPath: "/src/alpha"},
			{Name: "api-2", ProjectPath: "/src/alpha"},
		}

		items := buildGroupedItems(entries, now)

		want := []string{"src/alpha", "api", "api-2", "src/zeta", "web"}
		if len(items) != len(want) {
			t.Fatalf("got %d items, want %d", len(items), len(want))
		}
		for i, item := range items {
			var got string
			switch it := item.(type) {
			case headerItem:
				got = it.label
			case sessionItem:
				got = it.entry.Name
			}
			if got != want[i] {
				t.Errorf("item %d = %q, want %q", i, got, want[i])
			}
		}
	})
}

func TestShortenGroupKey(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/project", "user/project"},
		{"project", "project"},
		{"/project", "/project"},
	}
	for _, tt := range tests {
		if got := shortenGroupKey(tt.path); got != tt.want {
			t.Errorf("shortenGroupKey(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSkipHeaders(t *testing.T) {
	items := []list.Item{
		headerItem{label: "one"},
		sessionItem{entry: Entry{Name: "a"}},
		headerItem{label: "two"},
		sessionItem{entry: Entry{Name: "b"}},
	}
	newList := func(index int) list.Model {
		l := list.New(items, newGroupedDelegate(), 80, 40)
		l.Select(index)
		return l
	}

	tests := []struct {
		name      string
		index     int
		direction int
		want      int
	}{
		{"down from header", 0, 1, 1},
		{"up from first header falls back", 0, -1, 1},
		{"down from middle header", 2, 1, 3},
		{"up from middle header", 2, -1, 1},
		{"non-header untouched", 3, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newList(tt.index)
			skipHeaders(&l, tt.direction)
			if l.Index() != tt.want {
				t.Errorf("Index() = %d, want %d", l.Index(), tt.want)
			}
			if isHeaderSelected(&l) {
				t.Error("a header is still selected")
			}
		})
	}
}

func TestNavigationDirection(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, -1},
		{runeKey('k'), -1},
		{tea.KeyMsg{Type: tea.KeyDown}, 1},
		{runeKey('j'), 1},
	}
	for _, tt := range tests {
		if got := navigationDirection(tt.key); got != tt.want {
			t.Errorf("navigationDirection(%s) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
