package report

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginTop(1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Width(18)

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

// signed colors a value by its sign.
func signed(v float64, text string) string {
	switch {
	case v > 0:
		return gainStyle.Render(text)
	case v < 0:
		return lossStyle.Render(text)
	default:
		return text
	}
}
