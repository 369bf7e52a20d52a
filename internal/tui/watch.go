// Package tui provides the terminal user interface for Concord's watch mode.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/concordlabs/concord/internal/pipeline"
)

// RunStartedMsg is sent when a verification run begins.
type RunStartedMsg struct {
	Changed []string
}

// RunFinishedMsg is sent when a verification run completes.
type RunFinishedMsg struct {
	Report *pipeline.RunReport
	Err    error
}

// WatchModel is the bubbletea model for watch mode: a spinner while a run
// is in flight, then a one-line summary of the last run.
type WatchModel struct {
	spinner spinner.Model
	project string

	running bool
	changed []string
	last    *pipeline.RunReport
	lastErr error
	runs    int

	titleStyle lipgloss.Style
	okStyle    lipgloss.Style
	badStyle   lipgloss.Style
	dimStyle   lipgloss.Style
}

// NewWatchModel creates the watch-mode model.
func NewWatchModel(project string) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return WatchModel{
		spinner:    sp,
		project:    project,
		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		okStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		badStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		dimStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
}

// Init starts the spinner.
func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles run lifecycle and key events.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case RunStartedMsg:
		m.running = true
		m.changed = msg.Changed
		return m, nil
	case RunFinishedMsg:
		m.running = false
		m.last = msg.Report
		m.lastErr = msg.Err
		m.runs++
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the watch status.
func (m WatchModel) View() string {
	header := m.titleStyle.Render("concord watch") + m.dimStyle.Render("  "+m.project)

	var status string
	switch {
	case m.running:
		status = fmt.Sprintf("%s verifying %d changed file(s)…", m.spinner.View(), len(m.changed))
	case m.lastErr != nil:
		status = m.badStyle.Render("✗ ") + m.lastErr.Error()
	case m.last == nil:
		status = fmt.Sprintf("%s waiting for changes…", m.spinner.View())
	case m.last.Status == pipeline.StatusValid:
		status = m.okStyle.Render("✓ all contracts consistent") +
			m.dimStyle.Render(fmt.Sprintf("  (%s)", m.last.FinishedAt.Sub(m.last.StartedAt).Round(time.Millisecond)))
	default:
		status = m.badStyle.Render(fmt.Sprintf("✗ %d issues need manual repair", m.last.IssuesAfter()))
	}

	footer := m.dimStyle.Render(fmt.Sprintf("%d run(s) · press q to quit", m.runs))
	return lipgloss.JoinVertical(lipgloss.Left, header, "", status, "", footer) + "\n"
}
