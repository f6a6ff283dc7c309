package status

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Indicator is the coarse color shown next to the status line.
type Indicator int

const (
	OK Indicator = iota
	Stale
	Halted
	Fault
)

func (i Indicator) String() string {
	switch i {
	case OK:
		return "ok"
	case Stale:
		return "stale"
	case Halted:
		return "halted"
	case Fault:
		return "fault"
	default:
		return "unknown"
	}
}

// Snapshot is an observational copy of the control state. Nothing reads it back.
type Snapshot struct {
	At        time.Time `json:"at"`
	Mode      string    `json:"mode"`
	Indicator Indicator `json:"-"`
	Message   string    `json:"message"`

	RawLevel     int  `json:"raw_level"`
	Level        int  `json:"level_pct"`
	AverageLevel int  `json:"average_pct"`
	HaveAverage  bool `json:"have_average"`
	LevelOOR     bool `json:"level_out_of_range"`
	// WindowPending samples are accumulated toward the next WindowSize-sample average.
	WindowPending int `json:"window_pending"`
	WindowSize    int `json:"window_size"`

	TideHeight float64   `json:"tide_ft"`
	HaveTide   bool      `json:"have_tide"`
	TideState  string    `json:"tide_state"`
	NextFetch  time.Time `json:"next_fetch"`
	Goal       int       `json:"goal_pct"`
	GoalOOR    bool      `json:"goal_out_of_range"`

	ValvePosition int `json:"valve_position"`
	ValveOpenPct  int `json:"valve_open_pct"`

	CalLow  int `json:"cal_low"`
	CalHigh int `json:"cal_high"`
}

// Sink receives snapshots whenever the valve is commanded or an action lands.
type Sink interface {
	Show(ctx context.Context, s Snapshot) error
}

// Encode flattens a snapshot into string fields, suitable for a Redis hash.
func Encode(s Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"at":                 s.At.UTC().Format(time.RFC3339),
		"mode":               s.Mode,
		"indicator":          s.Indicator.String(),
		"message":            s.Message,
		"raw-level":          strconv.Itoa(s.RawLevel),
		"level":              strconv.Itoa(s.Level),
		"average":            optionalInt(s.AverageLevel, s.HaveAverage),
		"level-out-of-range": strconv.FormatBool(s.LevelOOR),
		"tide":               optionalFloat(s.TideHeight, s.HaveTide),
		"tide-state":         s.TideState,
		"goal":               optionalInt(s.Goal, s.HaveTide),
		"goal-out-of-range":  strconv.FormatBool(s.GoalOOR),
		"valve-position":     strconv.Itoa(s.ValvePosition),
		"valve-open":         strconv.Itoa(s.ValveOpenPct),
		"calibration-low":    strconv.Itoa(s.CalLow),
		"calibration-high":   strconv.Itoa(s.CalHigh),
	}
}

func optionalInt(v int, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.Itoa(v)
}

func optionalFloat(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Line is the short status string used by text displays.
func Line(s Snapshot) string {
	avg := "--"
	if s.HaveAverage {
		avg = strconv.Itoa(s.AverageLevel) + "%"
	}
	goal := "--"
	if s.HaveTide {
		goal = strconv.Itoa(s.Goal) + "%"
	}
	return fmt.Sprintf("[%s] level %s goal %s valve %d%% open", s.Indicator, avg, goal, s.ValveOpenPct)
}

// Multi fans a snapshot out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Show(ctx context.Context, s Snapshot) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Show(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest keeps the most recent snapshot in memory for pull-style readers.
type Latest struct {
	ch chan Snapshot
}

func NewLatest() *Latest {
	l := &Latest{ch: make(chan Snapshot, 1)}
	l.ch <- Snapshot{}
	return l
}

// Show replaces the stored snapshot.
func (l *Latest) Show(_ context.Context, s Snapshot) error {
	<-l.ch
	l.ch <- s
	return nil
}

// Get returns the stored snapshot.
func (l *Latest) Get() Snapshot {
	s := <-l.ch
	l.ch <- s
	return s
}
