package events

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	itemTitleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	itemDescStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	selectedTitleStyle = itemTitleStyle.Foreground(lipgloss.Color("51"))
	selectedDescStyle  = itemDescStyle.Foreground(lipgloss.Color("245"))
	faultTitleStyle    = itemTitleStyle.Foreground(lipgloss.Color("203"))
)

type eventItem struct{ Event }

func (i eventItem) Title() string { return string(i.Kind) }

func (i eventItem) Description() string {
	return i.At.Local().Format("2006-01-02 15:04:05") + " | " + i.Message
}

func (i eventItem) FilterValue() string {
	return strings.ToLower(string(i.Kind) + " " + i.Message)
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 2 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(eventItem)
	if !ok {
		io.WriteString(w, "?")
		return
	}
	titleStyle, descStyle := itemTitleStyle, itemDescStyle
	if it.Kind == KindFault {
		titleStyle = faultTitleStyle
	}
	if index == m.Index() {
		titleStyle, descStyle = selectedTitleStyle, selectedDescStyle
	}
	io.WriteString(w, lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(it.Title()), descStyle.Render(it.Description())))
}
