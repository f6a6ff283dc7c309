package calibration

import (
	"errors"
	"fmt"
)

// Endpoint names one of the two persisted reference points.
type Endpoint int

const (
	Low Endpoint = iota
	High
)

func (e Endpoint) String() string {
	switch e {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Unset marks an endpoint that has no stored value.
const Unset = -1

var (
	ErrDegenerate    = errors.New("calibration: high point must exceed low point")
	ErrUninitialized = errors.New("calibration: endpoint not initialized")
	ErrOutOfRange    = errors.New("calibration: raw value outside sensor range")
)

// Calibration holds the raw sensor readings taken at an empty (Low) and a full (High) tank.
type Calibration struct {
	Low  int `json:"low" yaml:"low"`
	High int `json:"high" yaml:"high"`
}

// Validate reports ErrDegenerate when the mapping would not be increasing.
func (c Calibration) Validate() error {
	if c.High <= c.Low {
		return fmt.Errorf("%w (low=%d high=%d)", ErrDegenerate, c.Low, c.High)
	}
	return nil
}

// With returns a copy with one endpoint replaced.
// The copy is rejected if it would be degenerate; c itself is never modified.
func (c Calibration) With(e Endpoint, raw int) (Calibration, error) {
	next := c
	switch e {
	case Low:
		next.Low = raw
	case High:
		next.High = raw
	default:
		return c, fmt.Errorf("calibration: unknown endpoint %d", int(e))
	}
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// Fill replaces Unset endpoints with the fallback's values.
func (c Calibration) Fill(fallback Calibration) Calibration {
	if c.Low == Unset {
		c.Low = fallback.Low
	}
	if c.High == Unset {
		c.High = fallback.High
	}
	return c
}

func (c Calibration) String() string {
	return fmt.Sprintf("low=%d high=%d", c.Low, c.High)
}
