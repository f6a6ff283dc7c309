package tide

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"
)

var tideTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
var tideInfoStyle = lipgloss.NewStyle().Faint(true)
var tideErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
var connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

// View renders connection state, the current height and a chart of recent readings.
func View(s *Source, station string, now time.Time, width int) string {
	b := &strings.Builder{}
	b.WriteString(tideTitleStyle.Render("Tide"))
	b.WriteString("\n")
	if s == nil {
		b.WriteString(tideInfoStyle.Render("No tide source configured. Run `tidevalve setup`."))
		return b.String()
	}
	if station != "" {
		b.WriteString("Station: ")
		b.WriteString(station)
		b.WriteString("\n")
	}

	if s.State() == Connected {
		b.WriteString(connectedStyle.Render(s.State().String()))
	} else {
		b.WriteString(tideErrStyle.Render(s.State().String()))
	}
	if next := s.NextDue(); !next.IsZero() {
		wait := next.Sub(now).Truncate(time.Second)
		if wait < 0 {
			wait = 0
		}
		b.WriteString(tideInfoStyle.Render(fmt.Sprintf("  next fetch in %s", wait)))
	}
	b.WriteString("\n")
	if last := s.LastAttempt(); !last.IsZero() {
		b.WriteString(tideInfoStyle.Render("Last attempt " + last.Local().Format("15:04:05")))
		b.WriteString("\n")
	}

	if h, ok := s.Height(); ok {
		b.WriteString(fmt.Sprintf("Height: %.2f ft MLLW", h))
		if s.LastError() != nil {
			b.WriteString(tideInfoStyle.Render(" (stale)"))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(tideInfoStyle.Render("No tide data"))
		b.WriteString("\n")
	}
	if err := s.LastError(); err != nil {
		b.WriteString(tideErrStyle.Render("tide error: " + err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(chart(s.History(), width))
	return b.String()
}

func chart(pts []Reading, width int) string {
	if len(pts) < 2 {
		return tideInfoStyle.Render("Insufficient tide points for chart")
	}
	minTime, maxTime := pts[0].Time, pts[len(pts)-1].Time
	if !maxTime.After(minTime) {
		return tideInfoStyle.Render("Insufficient tide points for chart")
	}
	minV, maxV := pts[0].Height, pts[0].Height
	for _, p := range pts[1:] {
		if p.Height < minV {
			minV = p.Height
		}
		if p.Height > maxV {
			maxV = p.Height
		}
	}
	if minV == maxV { // add small padding
		maxV += 0.1
		minV -= 0.1
	}

	if width < 24 {
		width = 42
	}
	lc := timeserieslinechart.New(width, 10)
	lc.SetTimeRange(minTime.In(time.Local), maxTime.In(time.Local))
	lc.SetViewTimeAndYRange(minTime.In(time.Local), maxTime.In(time.Local), minV, maxV)

	// about one label per hour
	hours := int(maxTime.Sub(minTime).Hours())
	if hours <= 0 {
		hours = 1
	}
	xStep := 1
	if hours < lc.GraphWidth() {
		xStep = max(1, lc.GraphWidth()/hours)
	}
	lc.SetXStep(xStep)
	lc.Model.XLabelFormatter = func(i int, v float64) string {
		return time.Unix(int64(v), 0).In(time.Local).Format("15:04")
	}
	for _, p := range pts {
		lc.Push(timeserieslinechart.TimePoint{Time: p.Time.In(time.Local), Value: p.Height})
	}
	lc.DrawBraille()

	b := &strings.Builder{}
	b.WriteString("Observed (ft):\n")
	b.WriteString(lc.View())
	b.WriteString("\n")
	tzName, _ := minTime.In(time.Local).Zone()
	b.WriteString(tideInfoStyle.Render(fmt.Sprintf("min %.2f ft / max %.2f ft | %s - %s %s",
		minV, maxV, minTime.In(time.Local).Format("15:04"), maxTime.In(time.Local).Format("15:04"), tzName)))
	return b.String()
}
