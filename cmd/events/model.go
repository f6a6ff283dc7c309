package events

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusBarStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	eventsTitleBarStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	faintStyle          = lipgloss.NewStyle().Faint(true)
)

// Feed is the interactive list of recorded events.
type Feed struct {
	svc    Service
	list   list.Model
	ready  bool
	shown  int
	newest string
	width  int
	height int
}

func NewFeed(svc Service) *Feed {
	return &Feed{svc: svc}
}

// ensureList creates or resizes the list model based on dimensions.
func (f *Feed) ensureList(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	f.width, f.height = width, height
	listHeight := max(5, height-6)
	if !f.ready {
		l := list.New(nil, itemDelegate{}, width-4, listHeight)
		l.Title = "Events"
		l.SetShowStatusBar(true)
		l.SetShowPagination(true)
		l.SetFilteringEnabled(true)
		l.Styles.Title = eventsTitleBarStyle
		l.Styles.StatusBar = statusBarStyle
		l.Styles.PaginationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
		f.list = l
		f.ready = true
		return
	}
	f.list.SetSize(width-4, listHeight)
}

// refresh inserts events recorded since the last refresh, newest first.
func (f *Feed) refresh() tea.Cmd {
	evs := f.svc.List()
	if len(evs) == 0 || evs[len(evs)-1].ID == f.newest {
		return nil
	}
	items := make([]list.Item, 0, len(evs))
	for i := len(evs) - 1; i >= 0; i-- {
		items = append(items, eventItem{evs[i]})
	}
	f.shown = len(evs)
	f.newest = evs[len(evs)-1].ID
	return f.list.SetItems(items)
}

// Update handles messages specific to the events list.
func (f *Feed) Update(msg tea.Msg, width, height int) tea.Cmd {
	f.ensureList(width, height)
	if !f.ready || f.svc == nil {
		return nil
	}
	cmds := []tea.Cmd{f.refresh()}
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" && f.list.FilterState() == list.Filtering {
		f.list.ResetFilter()
		return tea.Batch(cmds...)
	}
	var cmd tea.Cmd
	f.list, cmd = f.list.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

// View renders the events list.
func (f *Feed) View() string {
	if !f.ready {
		return eventsTitleBarStyle.Render("Events") + "\n" + "Loading..."
	}
	if f.shown == 0 {
		return eventsTitleBarStyle.Render("Events") + "\n" + faintStyle.Render("Nothing has happened yet.")
	}
	return f.list.View()
}
