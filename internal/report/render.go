package report

import (
	"github.com/charmbracelet/glamour"
)

// RenderTerminal renders Markdown for a terminal. Non-TTY output uses the
// notty style so no escape sequences end up in pipes or files.
func RenderTerminal(markdown string, width int, tty bool) (string, error) {
	if width <= 0 {
		width = 100
	}
	styleOption := glamour.WithStandardStyle("notty")
	if tty {
		styleOption = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}
