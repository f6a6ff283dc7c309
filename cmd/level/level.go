package level

import (
	"context"

	"github.com/sumwatshade/tidevalve/cmd/calibration"
)

// Sensor reads the instantaneous raw float position, 0..calibration.SensorMax.
type Sensor interface {
	ReadRawPosition(ctx context.Context) (int, error)
}

// Percent maps raw onto [0,100] using the calibration endpoints.
// Readings outside [Low,High] extrapolate; integer division truncates toward zero.
// A degenerate calibration (High == Low) maps everything to 0.
func Percent(raw int, cal calibration.Calibration) int {
	span := cal.High - cal.Low
	if span == 0 {
		return 0
	}
	return (raw - cal.Low) * 100 / span
}

// OutOfRange reports whether a percentage fell outside the nominal 0..100 band,
// which usually means the float is past a calibrated endpoint or the calibration is stale.
func OutOfRange(pct int) bool {
	return pct < 0 || pct > 100
}
