package tide

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FetchedMsg carries a completed fetch back into the bubbletea Update loop.
type FetchedMsg struct {
	Started time.Time
	Height  float64
	Err     error
}

// FetchCmd performs the HTTP request off the Update goroutine. The Source is
// not touched here; Update applies the result with Record.
func FetchCmd(f Fetcher, timeout time.Duration, started time.Time) tea.Cmd {
	return func() tea.Msg {
		h, err := FetchWithTimeout(context.Background(), f, timeout)
		return FetchedMsg{Started: started, Height: h, Err: err}
	}
}
