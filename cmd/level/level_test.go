package level

import (
	"testing"

	"github.com/sumwatshade/tidevalve/cmd/calibration"
)

func TestPercent(t *testing.T) {
	cal := calibration.Calibration{Low: 200, High: 800}

	tests := []struct {
		name string
		raw  int
		want int
	}{
		{"AtLow", 200, 0},
		{"AtHigh", 800, 100},
		{"Middle", 500, 50},
		{"Truncates", 205, 0},
		{"BelowLowExtrapolates", 140, -10},
		{"AboveHighExtrapolates", 860, 110},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.raw, cal); got != tt.want {
				t.Fatalf("Percent(%d) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPercent_InvertedAndDegenerate(t *testing.T) {
	inverted := calibration.Calibration{Low: 800, High: 200}
	if got := Percent(200, inverted); got != 100 {
		t.Fatalf("inverted Percent(200) = %d, want 100", got)
	}
	if got := Percent(900, inverted); got != -16 {
		t.Fatalf("inverted Percent(900) = %d, want -16", got)
	}

	flat := calibration.Calibration{Low: 500, High: 500}
	if got := Percent(700, flat); got != 0 {
		t.Fatalf("degenerate Percent() = %d, want 0", got)
	}
}

func TestOutOfRange(t *testing.T) {
	for _, pct := range []int{0, 50, 100} {
		if OutOfRange(pct) {
			t.Fatalf("OutOfRange(%d) = true", pct)
		}
	}
	for _, pct := range []int{-1, 101, 250} {
		if !OutOfRange(pct) {
			t.Fatalf("OutOfRange(%d) = false", pct)
		}
	}
}

func TestWindow_EmitsOncePerFiveSamples(t *testing.T) {
	w := NewWindow(DefaultWindowSize)

	samples := []int{10, 10, 11, 9, 10}
	for i, s := range samples {
		avg, ready := w.Add(s)
		if i < len(samples)-1 {
			if ready {
				t.Fatalf("sample %d: emitted early", i)
			}
			if w.Pending() != i+1 {
				t.Fatalf("sample %d: pending=%d", i, w.Pending())
			}
			continue
		}
		if !ready {
			t.Fatalf("expected emission on 5th sample")
		}
		if avg != 10 {
			t.Fatalf("avg = %d, want 10", avg)
		}
	}
	if w.Pending() != 0 {
		t.Fatalf("window not cleared after emission, pending=%d", w.Pending())
	}
}

func TestWindow_TruncatesAndStartsFresh(t *testing.T) {
	w := NewWindow(5)

	var emitted []int
	for _, s := range []int{1, 2, 2, 2, 2, 100, 100, 100, 100, 100} {
		if avg, ready := w.Add(s); ready {
			emitted = append(emitted, avg)
		}
	}
	if len(emitted) != 2 {
		t.Fatalf("emitted %d averages, want 2", len(emitted))
	}
	if emitted[0] != 1 {
		t.Fatalf("first avg = %d, want 1 (9/5 truncated)", emitted[0])
	}
	if emitted[1] != 100 {
		t.Fatalf("second avg = %d, want 100 (no carry-over)", emitted[1])
	}
}

func TestWindow_NegativeSamplesTruncateTowardZero(t *testing.T) {
	w := NewWindow(5)
	var avg int
	var ready bool
	for _, s := range []int{-3, -3, -3, -3, -2} {
		avg, ready = w.Add(s)
	}
	if !ready || avg != -2 {
		t.Fatalf("avg=%d ready=%v, want -2 true", avg, ready)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(3)
	w.Add(50)
	w.Add(50)
	w.Reset()
	if _, ready := w.Add(10); ready {
		t.Fatal("reset window emitted after one sample")
	}
	w.Add(10)
	avg, ready := w.Add(10)
	if !ready || avg != 10 {
		t.Fatalf("avg=%d ready=%v, want 10 true", avg, ready)
	}
}
