// Package tui provides the interactive session browser for realm
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/realm/internal/sandbox"
)

// Action represents the action to take after the browser closes
type Action int

const (
	ActionNone Action = iota
	ActionResume
	ActionNew
	ActionStop
	ActionRemove
	ActionPath
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionResume:
		return "resume"
	case ActionNew:
		return "new"
	case ActionStop:
		return "stop"
	case ActionRemove:
		return "remove"
	case ActionPath:
		return "path"
	case ActionQuit:
		return "quit"
	default:
		return "none"
	}
}

// Entry is one session shown in the browser.
type Entry struct {
	Name        string
	ProjectPath string
	Image       string
	Status      sandbox.Status
	CreatedAt   time.Time
}

// EntriesFromViews converts orchestrator views to browser entries.
func EntriesFromViews(views []sandbox.SessionView) []Entry {
	entries := make([]Entry, 0, len(views))
	for _, v := range views {
		entries = append(entries, Entry{
			Name:        v.Session.Name,
			ProjectPath: v.Session.ProjectPath,
			Image:       v.Session.Image,
			Status:      v.Status,
			CreatedAt:   v.Session.CreatedAt,
		})
	}
	return entries
}

// Result holds the result of the browser
type Result struct {
	Action Action
	Name   string
	// Image is only set by ActionNew. Empty means the configured default.
	Image string
}

// Options configures the browser.
type Options struct {
	// DefaultImage is shown as the image prompt's placeholder.
	DefaultImage string
	// ProjectDir seeds the suggested name of a new session.
	ProjectDir string
}

// sessionItem implements list.Item for session display
type sessionItem struct {
	entry Entry
	age   string
}

func (i sessionItem) Title() string {
	return i.entry.Name
}

func (i sessionItem) Description() string {
	return fmt.Sprintf("%s %s | %s | %s",
		statusIcon(i.entry.Status),
		i.entry.Status,
		i.entry.Image,
		i.age,
	)
}

func (i sessionItem) FilterValue() string {
	return i.entry.Name
}

func statusIcon(s sandbox.Status) string {
	switch s {
	case sandbox.StatusRunning:
		return "✓"
	case sandbox.StatusStopped:
		return "○"
	case sandbox.StatusAbsent:
		return "⚠"
	case sandbox.StatusCreating:
		return "…"
	default:
		return "?"
	}
}

// formatAge renders how long ago t was, at the coarsest useful unit.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true).
			MarginTop(1)
)

// Model is the bubbletea model for the session browser
type Model struct {
	list     list.Model
	wizard   *wizardModel
	opts     Options
	existing map[string]bool

	// confirming holds the session awaiting delete confirmation.
	confirming string

	result   Result
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new session browser. With no entries it opens
// straight into the new-session prompts.
func NewPicker(entries []Entry, opts Options) Model {
	items := buildGroupedItems(entries, time.Now())

	l := list.New(items, newGroupedDelegate(), 80, 20)
	l.Title = "realm - Sessions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	skipHeaders(&l, 1)

	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		existing[e.Name] = true
	}

	m := Model{
		list:     l,
		opts:     opts,
		existing: existing,
	}
	if len(entries) == 0 {
		m.wizard = m.newWizard()
	}
	return m
}

func (m Model) newWizard() *wizardModel {
	w := newWizardModel(m.opts.DefaultImage, suggestName(m.opts.ProjectDir, m.existing), m.existing)
	return &w
}

func (m Model) Init() tea.Cmd {
	if m.wizard != nil {
		return m.wizard.Init()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.list.SetSize(size.Width, size.Height-4)
		if m.wizard != nil {
			m.wizard.width = size.Width
		}
		return m, nil
	}

	if m.wizard != nil {
		return m.updateWizard(msg)
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey && m.confirming != "" {
		name := m.confirming
		m.confirming = ""
		if keyMsg.String() == "y" || keyMsg.String() == "Y" {
			return m.finish(Result{Action: ActionRemove, Name: name})
		}
		return m, nil
	}

	// Don't handle keys while filtering
	if isKey && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "enter":
			if name, ok := m.selected(); ok {
				return m.finish(Result{Action: ActionResume, Name: name})
			}
		case "n":
			m.wizard = m.newWizard()
			m.wizard.width = m.width
			return m, m.wizard.Init()
		case "s":
			if name, ok := m.selected(); ok {
				return m.finish(Result{Action: ActionStop, Name: name})
			}
		case "d":
			if name, ok := m.selected(); ok {
				m.confirming = name
				return m, nil
			}
		case "p":
			if name, ok := m.selected(); ok {
				return m.finish(Result{Action: ActionPath, Name: name})
			}
		case "q", "esc", "ctrl+c":
			return m.finish(Result{Action: ActionQuit})
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if isKey && isHeaderSelected(&m.list) {
		skipHeaders(&m.list, navigationDirection(keyMsg))
	}
	return m, cmd
}

func (m Model) updateWizard(msg tea.Msg) (tea.Model, tea.Cmd) {
	done, created, cmd := m.wizard.Update(msg)
	if !done {
		return m, cmd
	}
	m.wizard = nil
	if created != nil {
		return m.finish(Result{Action: ActionNew, Name: created.Name, Image: created.Image})
	}
	// Cancelling the prompts with nothing to browse closes the browser.
	if len(m.list.Items()) == 0 {
		return m.finish(Result{Action: ActionQuit})
	}
	return m, nil
}

func (m Model) finish(r Result) (tea.Model, tea.Cmd) {
	m.result = r
	m.quitting = true
	return m, tea.Quit
}

func (m Model) selected() (string, bool) {
	if item, ok := m.list.SelectedItem().(sessionItem); ok {
		return item.entry.Name, true
	}
	return "", false
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.wizard != nil {
		return m.wizard.View()
	}

	footer := helpStyle.Render("[enter] Resume  [n] New  [s] Stop  [d] Delete  [p] Path  [/] Filter  [q] Quit")
	if m.confirming != "" {
		footer = confirmStyle.Render(fmt.Sprintf("Delete session %s and its workspace? [y/N]", m.confirming))
	}
	return m.list.View() + "\n" + footer
}

// Result returns the browser result
func (m Model) Result() Result {
	return m.result
}

// RunPicker runs the interactive session browser
func RunPicker(entries []Entry, opts Options) (Result, error) {
	p := tea.NewProgram(NewPicker(entries, opts), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return Result{}, err
	}
	return finalModel.(Model).Result(), nil
}

// SimplePicker renders a plain listing for non-interactive output
func SimplePicker(entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("realm - Sessions\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(entries) == 0 {
		sb.WriteString("No sessions found.\n")
		sb.WriteString("Create one with: realm <name>\n")
		return sb.String()
	}

	now := time.Now()
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s %s (%s)\n", i+1, statusIcon(e.Status), e.Name, e.Status)
		fmt.Fprintf(&sb, "   Image: %s | Project: %s | Created: %s\n\n",
			e.Image, truncatePath(e.ProjectPath, 40), formatAge(e.CreatedAt, now))
	}
	return sb.String()
}
