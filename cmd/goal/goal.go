package goal

import (
	"errors"
	"fmt"
	"math"
)

// Default tide range in feet above MLLW.
const (
	DefaultTideLow  = -1.0
	DefaultTideHigh = 10.0
)

var ErrInvalidRange = errors.New("goal: tide high must exceed tide low")

// Mapper turns a tide height into the tank level the valve should chase.
type Mapper struct {
	TideLow  float64
	TideHigh float64
}

func NewMapper(low, high float64) (Mapper, error) {
	if math.IsNaN(low) || math.IsNaN(high) || high <= low {
		return Mapper{}, fmt.Errorf("%w (low=%g high=%g)", ErrInvalidRange, low, high)
	}
	return Mapper{TideLow: low, TideHigh: high}, nil
}

// Percent linearly maps height onto [0,100]. Heights outside the tide range
// extrapolate rather than clamp; the result is truncated toward zero.
func (m Mapper) Percent(height float64) int {
	span := m.TideHigh - m.TideLow
	if span == 0 {
		return 0
	}
	return int((height - m.TideLow) * 100 / span)
}

// OutOfRange reports whether height lies outside the configured tide range.
func (m Mapper) OutOfRange(height float64) bool {
	return height < m.TideLow || height > m.TideHigh
}
