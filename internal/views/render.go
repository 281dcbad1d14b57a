package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type AppData struct {
	Header       string
	Tabs         string
	LeftPane     string
	RightPane    string
	StatusLine   string
	Footer       string
	Notification string
	// StatusIsError renders the status line in the error style.
	StatusIsError bool
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("14"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func RenderApp(data AppData) string {
	left := panelStyle.Width(58).Render(data.LeftPane)
	row := left
	if strings.TrimSpace(data.RightPane) != "" {
		right := panelStyle.Width(46).Render(data.RightPane)
		row = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	status := statusStyle.Render(data.StatusLine)
	if data.StatusIsError {
		status = errorStyle.Render(data.StatusLine)
	}

	lines := []string{headerStyle.Render(data.Header)}
	if data.Tabs != "" {
		lines = append(lines, data.Tabs)
	}
	lines = append(lines, row, status)
	if data.Notification != "" {
		lines = append(lines, panelStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

// RenderTabs draws the tab strip with the active tab highlighted.
func RenderTabs(tabs []string, active string) string {
	parts := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := string(rune('1'+i)) + " " + tab
		if tab == active {
			parts = append(parts, activeTabStyle.Render(label))
			continue
		}
		parts = append(parts, tabStyle.Render(label))
	}
	return strings.Join(parts, "  ")
}

func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// GroupBadge renders a group name in its color. Colors lipgloss cannot use
// fall back to plain text.
func GroupBadge(name, color string) string {
	if !strings.HasPrefix(color, "#") {
		return "[" + name + "]"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("[" + name + "]")
}

// Bar is a horizontal bar scaled so maxValue fills width cells.
func Bar(value, maxValue, width int) string {
	if width <= 0 || maxValue <= 0 || value <= 0 {
		return ""
	}
	filled := value * width / maxValue
	if filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return barStyle.Render(strings.Repeat("█", filled))
}

func muted(s string) string {
	return mutedStyle.Render(s)
}
