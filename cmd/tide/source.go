package tide

import (
	"context"
	"time"
)

// Default fetch cadence: NOAA refreshes water levels every six minutes.
const (
	DefaultConnectedInterval = 360 * time.Second
	DefaultRetryInterval     = 10 * time.Second
)

// Source tracks the connection state, the fetch schedule and the last good height.
// It is owned by the control loop and not safe for concurrent use.
type Source struct {
	fetcher        Fetcher
	timeout        time.Duration
	connectedEvery time.Duration
	retryEvery     time.Duration

	state      ConnState
	anchor     time.Time
	height     float64
	haveHeight bool
	lastErr    error
	hist       history
}

type SourceOption func(*Source)

func WithIntervals(connected, retry time.Duration) SourceOption {
	return func(s *Source) {
		if connected > 0 {
			s.connectedEvery = connected
		}
		if retry > 0 {
			s.retryEvery = retry
		}
	}
}

func WithTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithHistory(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.hist.limit = n
		}
	}
}

// NewSource starts Disconnected with no anchor, so the first fetch is due immediately.
func NewSource(f Fetcher, opts ...SourceOption) *Source {
	s := &Source{
		fetcher:        f,
		timeout:        DefaultConfig().Timeout,
		connectedEvery: DefaultConnectedInterval,
		retryEvery:     DefaultRetryInterval,
		hist:           history{limit: DefaultHistory},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Interval is the wait implied by the current connection state.
func (s *Source) Interval() time.Duration {
	if s.state == Connected {
		return s.connectedEvery
	}
	return s.retryEvery
}

// NextDue is the zero time before the first attempt.
func (s *Source) NextDue() time.Time {
	if s.anchor.IsZero() {
		return time.Time{}
	}
	return s.anchor.Add(s.Interval())
}

func (s *Source) Due(now time.Time) bool {
	return s.anchor.IsZero() || !now.Before(s.NextDue())
}

// Record applies the outcome of an attempt started at `at` and re-anchors the schedule.
// A failure keeps the previous height.
func (s *Source) Record(at time.Time, height float64, err error) {
	s.anchor = at
	s.lastErr = err
	if err != nil {
		s.state = Disconnected
		return
	}
	s.state = Connected
	s.height = height
	s.haveHeight = true
	s.hist.add(Reading{Time: at, Height: height})
}

// FetchWithTimeout calls f under a derived deadline.
func FetchWithTimeout(ctx context.Context, f Fetcher, timeout time.Duration) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.Fetch(ctx)
}

func (s *Source) Fetcher() Fetcher       { return s.fetcher }
func (s *Source) Timeout() time.Duration { return s.timeout }
func (s *Source) State() ConnState       { return s.state }
func (s *Source) LastError() error       { return s.lastErr }
func (s *Source) LastAttempt() time.Time { return s.anchor }

// Height returns the last successfully fetched height; ok is false until the first success.
func (s *Source) Height() (h float64, ok bool) {
	return s.height, s.haveHeight
}

// History returns successful readings, oldest first.
func (s *Source) History() []Reading {
	return s.hist.snapshot()
}
