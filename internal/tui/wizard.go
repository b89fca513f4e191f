package tui

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/realm/internal/config"
)

// NewSession holds the answers of the new-session prompts.
type NewSession struct {
	Name  string
	Image string
}

type wizardStep int

const (
	stepName wizardStep = iota
	stepImage
)

// wizardModel asks for a session name and then an image.
type wizardModel struct {
	step     wizardStep
	existing map[string]bool

	nameInput  textinput.Model
	imageInput textinput.Model

	// err is shown under the active input until the next keystroke.
	err string

	width int
}

var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				MarginBottom(1)

	wizardStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	wizardActiveStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	wizardLabelStyle = lipgloss.NewStyle().
				Bold(true).
				MarginBottom(1)

	wizardValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	wizardErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203"))

	wizardDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func newWizardModel(defaultImage, suggested string, existing map[string]bool) wizardModel {
	ni := textinput.New()
	ni.Placeholder = "session-name"
	ni.CharLimit = 63
	ni.Width = 40
	ni.SetValue(suggested)
	ni.Focus()

	ii := textinput.New()
	ii.Placeholder = defaultImage
	ii.CharLimit = 256
	ii.Width = 60

	return wizardModel{
		step:       stepName,
		existing:   existing,
		nameInput:  ni,
		imageInput: ii,
	}
}

func (w *wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update processes a message and returns (done, session, cmd).
// done with a nil session means the prompts were cancelled.
func (w *wizardModel) Update(msg tea.Msg) (bool, *NewSession, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC:
			return true, nil, nil
		case tea.KeyEsc:
			return w.handleBack()
		}
	}

	switch w.step {
	case stepName:
		return w.updateName(msg)
	case stepImage:
		return w.updateImage(msg)
	}
	return false, nil, nil
}

func (w *wizardModel) handleBack() (bool, *NewSession, tea.Cmd) {
	if w.step == stepName {
		return true, nil, nil
	}
	w.step = stepName
	w.err = ""
	w.imageInput.Blur()
	w.nameInput.Focus()
	return false, nil, textinput.Blink
}

func (w *wizardModel) updateName(msg tea.Msg) (bool, *NewSession, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		name := strings.TrimSpace(w.nameInput.Value())
		if err := w.checkName(name); err != nil {
			w.err = err.Error()
			return false, nil, nil
		}
		w.err = ""
		w.step = stepImage
		w.nameInput.Blur()
		w.imageInput.Focus()
		return false, nil, textinput.Blink
	}

	w.err = ""
	var cmd tea.Cmd
	w.nameInput, cmd = w.nameInput.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) checkName(name string) error {
	if name == "" {
		return fmt.Errorf("a name is required")
	}
	if err := config.ValidateSessionName(name); err != nil {
		return err
	}
	if w.existing[name] {
		return fmt.Errorf("session %s already exists", name)
	}
	return nil
}

func (w *wizardModel) updateImage(msg tea.Msg) (bool, *NewSession, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		return true, &NewSession{
			Name:  strings.TrimSpace(w.nameInput.Value()),
			Image: strings.TrimSpace(w.imageInput.Value()),
		}, nil
	}

	var cmd tea.Cmd
	w.imageInput, cmd = w.imageInput.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) View() string {
	var b strings.Builder

	b.WriteString(wizardTitleStyle.Render("realm - New Session"))
	b.WriteString("\n")

	steps := []string{"Name", "Image"}
	for i, s := range steps {
		if i > 0 {
			b.WriteString(wizardStepStyle.Render(" > "))
		}
		if wizardStep(i) == w.step {
			b.WriteString(wizardActiveStepStyle.Render(s))
		} else {
			b.WriteString(wizardStepStyle.Render(s))
		}
	}
	b.WriteString("\n\n")

	switch w.step {
	case stepName:
		b.WriteString(wizardLabelStyle.Render("Session name:"))
		b.WriteString("\n")
		b.WriteString(w.nameInput.View())
	case stepImage:
		b.WriteString(wizardDimStyle.Render("Name: "))
		b.WriteString(wizardValueStyle.Render(w.nameInput.Value()))
		b.WriteString("\n\n")
		b.WriteString(wizardLabelStyle.Render("Image (empty for default):"))
		b.WriteString("\n")
		b.WriteString(w.imageInput.View())
	}
	b.WriteString("\n")

	if w.err != "" {
		b.WriteString("\n")
		b.WriteString(wizardErrorStyle.Render(w.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(wizardDimStyle.Render("[enter] Next  [esc] Back  [ctrl+c] Cancel"))
	return b.String()
}

// sanitizeNameRegex matches characters not valid in session names.
var sanitizeNameRegex = regexp.MustCompile(`[^a-z0-9_-]`)

// suggestName derives a free session name from a project directory.
func suggestName(projectDir string, existing map[string]bool) string {
	if projectDir == "" {
		return ""
	}
	base := strings.ToLower(filepath.Base(projectDir))
	base = sanitizeNameRegex.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-_")
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-_")
	}
	if base == "" || config.IsReservedName(base) {
		base = "session"
	}

	name := base
	for i := 2; existing[name]; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return name
}
