package control

import (
	"time"

	"github.com/sumwatshade/tidevalve/cmd/calibration"
)

// Mode is the loop's top-level state. Both halted modes are terminal.
type Mode int

const (
	Running Mode = iota
	HaltedOpen
	HaltedClosed
)

func (m Mode) String() string {
	switch m {
	case Running:
		return "running"
	case HaltedOpen:
		return "halted-open"
	case HaltedClosed:
		return "halted-closed"
	default:
		return "unknown"
	}
}

// State is every transient the loop owns. Only the loop mutates it.
type State struct {
	Mode Mode
	Cal  calibration.Calibration

	LastSample time.Time
	LastReset  time.Time

	// Raw and Level are the latest instantaneous reading, kept for diagnostics.
	Raw   int
	Level int

	// Average is the only signal used for control decisions.
	Average     int
	HaveAverage bool
	LevelOOR    bool

	Goal     int
	HaveGoal bool
	GoalOOR  bool

	ForceFetch bool
	Fetching   bool

	SensorErr   error
	ActuatorErr error
	// Commanded is set once the actuator has acknowledged any position since start.
	Commanded bool
}
