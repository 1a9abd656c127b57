package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/xtf/model"
	"github.com/sokinpui/xtf/xtf"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	createdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

type summaryMsg struct {
	model.Summary
}

type progressMsg struct {
	current int
	total   int
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

// Model drives the spinner-then-summary terminal UI around one App run.
type Model struct {
	app      *xtf.App
	spinner  spinner.Model
	state    state
	summary  summaryMsg
	err      error
	progress progressMsg
}

func New(app *xtf.App) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:     app,
		spinner: s,
		state:   stateProcessing,
	}
}

// SetProgram routes App progress updates into the running program as
// messages. Must be called before Run.
func (m *Model) SetProgram(p *tea.Program) {
	m.app.SetProgressCallback(func(current, total int) {
		p.Send(progressMsg{current: current, total: total})
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case progressMsg:
		m.progress = msg
		return m, nil

	case errorMsg:
		m.state = stateError
		m.err = msg
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.progress.total > 0 {
			return fmt.Sprintf("%s Applying changes... [%d/%d]",
				m.spinner.View(), m.progress.current, m.progress.total)
		}
		return fmt.Sprintf("%s Applying changes...", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: " + m.err.Error())
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	section := func(style lipgloss.Style, label string, paths []string) bool {
		if len(paths) == 0 {
			return false
		}
		b.WriteString(style.Render(label + ":"))
		b.WriteString("\n")
		for _, p := range paths {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(p)))
		}
		return true
	}

	hasContent := false
	hasContent = section(createdStyle, "Created", m.summary.Created) || hasContent
	hasContent = section(successStyle, "Modified", m.summary.Modified) || hasContent
	hasContent = section(deletedStyle, "Deleted", m.summary.Deleted) || hasContent
	hasContent = section(errorStyle, "Failed", m.summary.Failed) || hasContent

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
	}

	return b.String()
}

func (m *Model) runApp() tea.Msg {
	summary, err := m.app.Execute()
	if err != nil {
		// The TUI is about to exit, so the stack trace can go straight
		// to stderr.
		if e, ok := err.(*xtf.DetailedError); ok {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{Summary: summary}
}
