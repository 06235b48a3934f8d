package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Status is what the bottom bar reports.
type Status struct {
	Project  string
	Pending  int    // rows waiting to be written
	Failures int    // writes that failed since start
	Message  string // last action result, shown on the left
	IsError  bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s Status) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.SurfaceHover).
		Width(width)

	left := " [?]help  [e]dit  [q]uit"
	if s.Message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover)
		if s.IsError {
			msgStyle = msgStyle.Foreground(t.Red)
		}
		left = " " + msgStyle.Render(s.Message)
	}

	var parts []string
	if s.Project != "" {
		parts = append(parts, s.Project)
	}
	switch {
	case s.Pending > 0:
		parts = append(parts, fmt.Sprintf("saving %d", s.Pending))
	default:
		parts = append(parts, "saved")
	}
	if s.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failures))
	}
	right := strings.Join(parts, " · ") + " "

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
