package goal

import (
	"errors"
	"testing"
)

func TestMapper_Percent(t *testing.T) {
	m, err := NewMapper(DefaultTideLow, DefaultTideHigh)
	if err != nil {
		t.Fatalf("NewMapper() err=%v", err)
	}

	tests := []struct {
		name   string
		height float64
		want   int
	}{
		{"Low", -1, 0},
		{"High", 10, 100},
		{"Middle", 4.5, 50},
		{"Truncates", 0.0, 9},
		{"AboveRange", 12.1, 119},
		{"BelowRange", -2.5, -13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Percent(tt.height); got != tt.want {
				t.Fatalf("Percent(%v) = %d, want %d", tt.height, got, tt.want)
			}
		})
	}
}

func TestMapper_OutOfRange(t *testing.T) {
	m := Mapper{TideLow: -1, TideHigh: 10}
	if m.OutOfRange(-1) || m.OutOfRange(10) || m.OutOfRange(3.2) {
		t.Fatal("in-range heights flagged")
	}
	if !m.OutOfRange(-1.01) || !m.OutOfRange(10.5) {
		t.Fatal("out-of-range heights not flagged")
	}
}

func TestNewMapper_RejectsInvertedRange(t *testing.T) {
	if _, err := NewMapper(5, 5); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := NewMapper(10, -1); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
