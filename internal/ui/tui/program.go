package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/egv/cmdverify/internal/contracts"
)

// Sink forwards engine events to a running program.
type Sink struct {
	program *tea.Program
}

func (s Sink) Emit(_ context.Context, event contracts.Event) error {
	if s.program == nil {
		return nil
	}
	s.program.Send(EventMsg{Event: event})
	return nil
}

// Run shows live progress on out while verify runs. verify receives a context
// that is cancelled when the user presses q, and a sink to report through.
// The program exits once verify returns, and verify's error is returned.
func Run(ctx context.Context, out io.Writer, verify func(context.Context, contracts.EventSink) error, opts ...tea.ProgramOption) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	options := append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(NewModel(nil, cancel), options...)

	verifyDone := make(chan error, 1)
	go func() {
		err := verify(runCtx, Sink{program: program})
		program.Send(RunDoneMsg{Err: err})
		verifyDone <- err
	}()

	_, programErr := program.Run()
	if programErr != nil {
		cancel()
	}
	err := <-verifyDone
	if programErr != nil && !errors.Is(programErr, tea.ErrProgramKilled) {
		return errors.Join(err, fmt.Errorf("progress display: %w", programErr))
	}
	return err
}
