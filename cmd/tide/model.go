package tide

import "time"

// ConnState is the outcome of the most recent fetch attempt.
type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

func (c ConnState) String() string {
	if c == Connected {
		return "connected"
	}
	return "disconnected"
}

// Reading is one successfully fetched tide height.
type Reading struct {
	Time   time.Time
	Height float64
}

// DefaultHistory keeps roughly a day at the six minute cadence.
const DefaultHistory = 240

// history is a bounded, oldest-first list of readings.
type history struct {
	limit  int
	points []Reading
}

func (h *history) add(r Reading) {
	h.points = append(h.points, r)
	if over := len(h.points) - h.limit; over > 0 {
		h.points = append(h.points[:0:0], h.points[over:]...)
	}
}

func (h *history) snapshot() []Reading {
	out := make([]Reading, len(h.points))
	copy(out, h.points)
	return out
}
