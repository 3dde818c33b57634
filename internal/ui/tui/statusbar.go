package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusBar renders the one-line run status under the check list.
type StatusBar struct {
	finished int
	total    int
	running  []string
	elapsed  string
	spinner  string
	stopping bool
	width    int
}

func NewStatusBar() StatusBar {
	return StatusBar{
		width: 80,
	}
}

func (s StatusBar) Init() tea.Cmd {
	return nil
}

// UpdateStatusBarMsg replaces the progress shown by the status bar.
type UpdateStatusBarMsg struct {
	Finished int
	Total    int
	Running  []string
	Elapsed  string
	Spinner  string
}

// StopStatusBarMsg switches the bar to its stopping state.
type StopStatusBarMsg struct{}

func (s StatusBar) Update(msg tea.Msg) (StatusBar, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = typed.Width
	case UpdateStatusBarMsg:
		s.finished = typed.Finished
		s.total = typed.Total
		s.running = append([]string(nil), typed.Running...)
		s.elapsed = typed.Elapsed
		s.spinner = typed.Spinner
	case StopStatusBarMsg:
		s.stopping = true
	}
	return s, nil
}

func (s StatusBar) View() string {
	style := lipgloss.NewStyle().
		Width(s.width).
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color("#1a1a1a")).
		Padding(0, 1)

	if s.stopping {
		return style.Background(lipgloss.Color("#ff0000")).Render("Stopping... waiting for running checks")
	}

	var parts []string
	if s.spinner != "" {
		parts = append(parts, s.spinner)
	}
	if s.total > 0 {
		parts = append(parts, fmt.Sprintf("[%d/%d]", s.finished, s.total))
	}
	if len(s.running) > 0 {
		parts = append(parts, "running: "+strings.Join(s.running, ", "))
	}
	if s.elapsed != "" {
		parts = append(parts, fmt.Sprintf("(%s)", s.elapsed))
	}
	parts = append(parts, "q: stop")

	return style.Render(strings.Join(parts, " "))
}

func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

func (s *StatusBar) SetStopping(stopping bool) {
	s.stopping = stopping
}
