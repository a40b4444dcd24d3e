package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	resultMarks = " => "
)

// renderPlan renders a plan text form for the terminal. With colour enabled,
// lines carrying an executed result are highlighted: errors red, passing
// checks green, resolved values cyan.
func renderPlan(form string, colour bool) string {
	if !colour {
		return form
	}
	lines := strings.Split(form, "\n")
	for i, line := range lines {
		switch {
		case strings.Contains(line, "ERROR("):
			lines[i] = errorStyle.Render(line)
		case strings.Contains(line, resultMarks+"BOOL(true)"):
			lines[i] = okStyle.Render(line)
		case strings.Contains(line, resultMarks):
			lines[i] = valueStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
