// internal/tui/watch.go
//
// Live progress dashboard for long documentation batches. Follows The Elm
// Architecture via bubbletea: the model reloads the progress store on a
// timer and renders counts, a progress bar, and the journal tail.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/autodoc/internal/logbook"
	"github.com/yourusername/autodoc/internal/manifest"
	progressstore "github.com/yourusername/autodoc/internal/progress"
)

const refreshInterval = 2 * time.Second

const journalTailLines = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type tickMsg time.Time

// Model is the bubbletea model for the watch dashboard.
type Model struct {
	manifest *manifest.Manifest
	store    *progressstore.Store
	journal  *logbook.Logbook
	bar      progress.Model

	summary progressstore.Summary
	tail    []string
	loadErr error
}

// NewModel builds the dashboard model.
func NewModel(m *manifest.Manifest, store *progressstore.Store, journal *logbook.Logbook) Model {
	return Model{
		manifest: m,
		store:    store,
		journal:  journal,
		bar:      progress.New(progress.WithDefaultGradient()),
	}
}

// Init starts the refresh timer with an immediate first load.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

// Update handles key presses and refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 8
		if width > 10 {
			m.bar.Width = width
		}
	case tickMsg:
		m = m.reload()
		return m, tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func (m Model) reload() Model {
	rec, err := m.store.Load()
	if err != nil {
		m.loadErr = err
		return m
	}
	m.loadErr = nil
	m.summary = rec.Summarize(len(m.manifest.Scenarios))
	m.tail = m.journal.Tail(journalTailLines)
	return m
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("autodoc: documentation progress"))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("progress store error: %v", m.loadErr)))
		b.WriteString("\n")
		return boxStyle.Render(b.String())
	}

	percent := 0.0
	if m.summary.Total > 0 {
		percent = float64(m.summary.Done) / float64(m.summary.Total)
	}
	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "documented %d/%d, %d pending\n", m.summary.Done, m.summary.Total, m.summary.Pending)

	if len(m.tail) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("recent activity"))
		b.WriteString("\n")
		for _, line := range m.tail {
			b.WriteString(dimStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	return boxStyle.Render(b.String())
}

// Run launches the dashboard and blocks until the user quits.
func Run(m *manifest.Manifest, store *progressstore.Store, journal *logbook.Logbook) error {
	p := tea.NewProgram(NewModel(m, store, journal))
	_, err := p.Run()
	return err
}
