package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egv/cmdverify/internal/contracts"
	"github.com/egv/cmdverify/internal/ui"
)

// EventMsg carries one engine event into the program.
type EventMsg struct {
	Event contracts.Event
}

// RunDoneMsg is sent once verification has returned.
type RunDoneMsg struct {
	Err error
}

type checkRow struct {
	name     string
	running  bool
	status   contracts.CheckStatus
	duration time.Duration
	reasons  []string
}

type Model struct {
	rows      []checkRow
	index     map[string]int
	total     int
	finished  int
	startedAt time.Time
	summary   *contracts.RunSummary
	now       func() time.Time
	spinner   spinner.Model
	statusBar StatusBar
	stop      func()
	stopping  bool
	done      bool
	err       error
}

// NewModel builds the progress model. stop is called once when the user asks
// to stop the run; it should cancel verification, which then reports back
// through RunDoneMsg.
func NewModel(now func() time.Time, stop func()) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		index:     map[string]int{},
		now:       now,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Line)),
		statusBar: NewStatusBar(),
		stop:      stop,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case EventMsg:
		m.apply(typed.Event)
		return m, nil
	case RunDoneMsg:
		m.done = true
		m.err = typed.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.WindowSizeMsg:
		m.statusBar, _ = m.statusBar.Update(typed)
		return m, nil
	case tea.KeyMsg:
		if typed.Type == tea.KeyCtrlC || (typed.Type == tea.KeyRunes && len(typed.Runes) == 1 && typed.Runes[0] == 'q') {
			if !m.stopping {
				m.stopping = true
				m.statusBar, _ = m.statusBar.Update(StopStatusBarMsg{})
				if m.stop != nil {
					m.stop()
				}
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(event contracts.Event) {
	switch event.Type {
	case contracts.EventTypeRunStarted:
		m.total = event.Total
		m.startedAt = event.Timestamp
		if m.startedAt.IsZero() {
			m.startedAt = m.now()
		}
	case contracts.EventTypeCheckStarted:
		row := m.row(event.CheckName)
		row.running = true
	case contracts.EventTypeCheckFinished:
		if event.Result == nil {
			return
		}
		row := m.row(event.Result.Name)
		row.running = false
		row.status = event.Result.Status
		row.duration = event.Result.Duration
		row.reasons = append([]string(nil), event.Result.Reasons...)
		m.finished++
	case contracts.EventTypeRunFinished:
		m.summary = event.Summary
	}
}

func (m *Model) row(name string) *checkRow {
	if i, ok := m.index[name]; ok {
		return &m.rows[i]
	}
	m.index[name] = len(m.rows)
	m.rows = append(m.rows, checkRow{name: name})
	return &m.rows[len(m.rows)-1]
}

func (m Model) View() string {
	var b strings.Builder
	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
	}

	if m.summary != nil {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(ui.SummaryLine(*m.summary)))
		b.WriteString("\n")
		return b.String()
	}

	running := []string{}
	for _, row := range m.rows {
		if row.running {
			running = append(running, row.name)
		}
	}
	bar, _ := m.statusBar.Update(UpdateStatusBarMsg{
		Finished: m.finished,
		Total:    m.total,
		Running:  running,
		Elapsed:  m.elapsed(),
		Spinner:  m.spinner.View(),
	})
	b.WriteString(bar.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRow(row checkRow) string {
	switch {
	case row.running:
		return fmt.Sprintf("%s %s\n", m.spinner.View(), row.name)
	case row.status == contracts.CheckStatusPassed:
		return fmt.Sprintf("✓ %s (%s)\n", row.name, ui.FormatDuration(row.duration))
	case row.status == contracts.CheckStatusSkipped:
		return fmt.Sprintf("- %s (skipped: %s)\n", row.name, strings.Join(row.reasons, "; "))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %s (%s)\n", row.name, ui.FormatDuration(row.duration))
	for _, reason := range row.reasons {
		b.WriteString("    " + reason + "\n")
	}
	return b.String()
}

func (m Model) elapsed() string {
	if m.startedAt.IsZero() {
		return ""
	}
	age := m.now().Sub(m.startedAt).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return fmt.Sprintf("%ds", int(age.Seconds()))
}

func (m Model) StopRequested() bool {
	return m.stopping
}

func (m Model) Done() bool {
	return m.done
}

// Err is the verification error delivered by RunDoneMsg.
func (m Model) Err() error {
	return m.err
}
