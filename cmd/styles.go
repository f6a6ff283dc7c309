package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sumwatshade/tidevalve/cmd/status"
)

// Centralized styles for consistent UX across views.
var (
	appTitle       = "tidevalve"
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("195")).Background(lipgloss.Color("24")).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("247"))
	activeTabStyle = tabStyle.Bold(true).Foreground(lipgloss.Color("51")).Background(lipgloss.Color("236"))
	contentStyle   = lipgloss.NewStyle().Padding(1, 2)
	dividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	bannerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)
)

var indicatorStyles = map[status.Indicator]lipgloss.Style{
	status.OK:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	status.Stale:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	status.Halted: lipgloss.NewStyle().Foreground(lipgloss.Color("201")),
	status.Fault:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

func indicator(i status.Indicator) string {
	return indicatorStyles[i].Render("● " + i.String())
}

func tabs(current string, width int) string {
	// tide data always visible left
	names := []string{"tank", "events"}
	var rendered []string
	for _, n := range names {
		if n == current {
			rendered = append(rendered, activeTabStyle.Render(n))
		} else {
			rendered = append(rendered, tabStyle.Render(n))
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}
