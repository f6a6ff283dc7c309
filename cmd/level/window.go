package level

import (
	"github.com/asecurityteam/rolling"
)

// DefaultWindowSize is the number of samples averaged into one level reading.
const DefaultWindowSize = 5

// Window is a tumbling average over a fixed number of percent samples.
// It emits once every Size samples and then starts over empty.
type Window struct {
	size   int
	count  int
	points *rolling.PointPolicy
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	w := &Window{size: size}
	w.Reset()
	return w
}

// Add accumulates one sample. When the window fills, it returns the
// truncated integer mean and ready=true, and the window is cleared.
func (w *Window) Add(pct int) (avg int, ready bool) {
	w.points.Append(float64(pct))
	w.count++
	if w.count < w.size {
		return 0, false
	}
	sum := int(w.points.Reduce(rolling.Sum))
	w.Reset()
	return sum / w.size, true
}

// Reset drops any partially accumulated samples.
func (w *Window) Reset() {
	w.count = 0
	w.points = rolling.NewPointPolicy(rolling.NewWindow(w.size))
}

// Pending returns how many samples are accumulated toward the next average.
func (w *Window) Pending() int { return w.count }

func (w *Window) Size() int { return w.size }
