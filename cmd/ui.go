package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	bhelp "github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sumwatshade/tidevalve/cmd/control"
	"github.com/sumwatshade/tidevalve/cmd/events"
	"github.com/sumwatshade/tidevalve/cmd/status"
	"github.com/sumwatshade/tidevalve/cmd/tide"
)

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	rt        *runtime
	rightView string // "tank" or "events"
	feed      *events.Feed
	valveBar  progress.Model
	now       time.Time
	notice    string
	width     int
	height    int
	// help / key bindings
	keys keyMap
	help bhelp.Model
}

func initialModel(rt *runtime) model {
	return model{
		rt:        rt,
		rightView: "tank",
		feed:      events.NewFeed(rt.events),
		valveBar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		now:       time.Now(),
		keys:      keys,
		help:      bhelp.New(),
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.rt.loop.SampleInterval())
}

var keyActions = map[string]control.Action{
	"O": control.ForceOpen,
	"C": control.ForceClose,
	"x": control.SetMax,
	"n": control.SetMin,
	"f": control.FetchNow,
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	loop := m.rt.loop

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Tank):
			m.rightView = "tank"
		case key.Matches(msg, m.keys.Events):
			m.rightView = "events"
		case key.Matches(msg, m.keys.ForceOpen, m.keys.ForceClose, m.keys.SetMax, m.keys.SetMin, m.keys.Fetch):
			a := keyActions[msg.String()]
			if err := loop.Dispatch(context.Background(), m.now, a); err != nil {
				m.notice = errStyle.Render(fmt.Sprintf("%s failed: %v", a, err))
			} else {
				m.notice = fmt.Sprintf("%s ok", a)
			}
		}
	case tickMsg:
		m.now = time.Time(msg)
		if loop.Halted() {
			// halted is terminal; stop scheduling ticks
			return m, nil
		}
		if loop.BeginFetch(m.now) {
			cmds = append(cmds, tide.FetchCmd(loop.Tide().Fetcher(), loop.Tide().Timeout(), m.now))
		}
		if err := loop.Tick(context.Background(), m.now); err != nil {
			m.notice = errStyle.Render(err.Error())
		}
		cmds = append(cmds, tickCmd(loop.SampleInterval()))
	case tide.FetchedMsg:
		loop.ApplyFetch(msg.Started, msg.Height, msg.Err)
	}

	if m.rightView == "events" {
		if cmd := m.feed.Update(msg, rightPaneWidth(m.width), m.height); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	left := tide.View(m.rt.loop.Tide(), m.rt.settings.Tide.Station, m.now, leftPaneWidth(m.width)-4)
	var right string
	switch m.rightView {
	case "tank":
		right = m.tankView()
	case "events":
		right = m.feed.View()
	default:
		right = "unknown"
	}

	leftW := leftPaneWidth(m.width)
	rightW := rightPaneWidth(m.width)
	leftRendered := lipgloss.NewStyle().Width(leftW).Render(contentStyle.Render(left))
	rightRendered := lipgloss.NewStyle().Width(rightW).Render(contentStyle.Render(right))
	columns := lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, dividerStyle.Render("│"), rightRendered)

	header := headerStyle.Render(appTitle) + " " + tabs(m.rightView, max(0, m.width-12))
	sep := dividerStyle.Render(strings.Repeat("─", max(0, m.width)))
	foot := m.help.View(m.keys)
	if m.notice != "" {
		foot = m.notice + "\n" + foot
	}
	layout := lipgloss.JoinVertical(lipgloss.Left, header, sep, columns, sep, foot)
	if m.width > 0 {
		layout = lipgloss.NewStyle().Width(m.width).Render(layout)
	}
	return layout
}

func (m model) tankView() string {
	s := m.rt.loop.Snapshot(m.now)
	b := &strings.Builder{}

	fmt.Fprintln(b, sectionStyle.Render("Tank"), " ", indicator(s.Indicator))
	if s.Indicator == status.Halted {
		fmt.Fprintln(b, bannerStyle.Render(fmt.Sprintf("CONTROL HALTED (%s)", s.Mode)))
	}
	if s.Message != "" {
		fmt.Fprintln(b, warnStyle.Render(s.Message))
	}
	fmt.Fprintln(b)

	avg := "--"
	if s.HaveAverage {
		avg = fmt.Sprintf("%d%%", s.AverageLevel)
	}
	if s.LevelOOR {
		avg += warnStyle.Render(" out of range")
	}
	goal := "--"
	if s.HaveTide {
		goal = fmt.Sprintf("%d%%", s.Goal)
		if s.GoalOOR {
			goal += warnStyle.Render(" extrapolated")
		}
	}
	row := func(label, value string) {
		fmt.Fprintln(b, labelStyle.Render(label)+value)
	}
	row("Level", avg)
	row("Goal", goal)
	row("Instant", fmt.Sprintf("%d%% (raw %d)", s.Level, s.RawLevel))
	row("Samples", fmt.Sprintf("%d/%d", s.WindowPending, s.WindowSize))
	row("Calibration", fmt.Sprintf("%d .. %d", s.CalLow, s.CalHigh))
	fmt.Fprintln(b)

	fmt.Fprintln(b, sectionStyle.Render("Valve"))
	row("Position", fmt.Sprintf("%d", s.ValvePosition))
	fmt.Fprintln(b, labelStyle.Render("Open")+m.valveBar.ViewAs(float64(s.ValveOpenPct)/100))
	return b.String()
}

func leftPaneWidth(total int) int {
	return max(24, int(float64(total)*0.45))
}

// helper to compute right pane width for updates
func rightPaneWidth(total int) int {
	return max(20, total-leftPaneWidth(total)-1)
}
