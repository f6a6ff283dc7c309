package events

import (
	"fmt"
	"time"
)

// Kind groups events for filtering and coloring.
type Kind string

const (
	KindAction      Kind = "action"
	KindCalibration Kind = "calibration"
	KindTide        Kind = "tide"
	KindValve       Kind = "valve"
	KindFault       Kind = "fault"
	KindReset       Kind = "reset"
)

// Event is one notable thing the control loop did or observed.
// ID is assigned by the service when the event is recorded.
type Event struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s: %s", e.At.Local().Format("15:04:05"), e.Kind, e.Message)
}
