package valve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeActuator struct {
	calls []int
	err   error
}

func (f *fakeActuator) SetPosition(_ context.Context, pos int) error {
	f.calls = append(f.calls, pos)
	return f.err
}

func newTestController(t *testing.T, start int) (*Controller, *fakeActuator) {
	t.Helper()
	act := &fakeActuator{}
	c, err := New(DefaultConfig(), act, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	c.pos = start
	return c, act
}

func TestAdjust_Policy(t *testing.T) {
	tests := []struct {
		name  string
		start int
		avg   int
		goal  int
		want  int
	}{
		{"UnderNearStepsClosed", 120, 50, 54, 130},
		{"UnderFarSnapsClosed", 100, 50, 80, 180},
		{"OverNearStepsOpen", 120, 54, 50, 110},
		{"OverFarStepsOpenLarge", 120, 80, 50, 100},
		{"OverFarClampsAtOpen", 90, 80, 50, 80},
		{"UnderNearClampsAtClosed", 175, 50, 52, 180},
		{"EqualNoChange", 130, 60, 60, 130},
		{"ExtremeUnder", 80, 0, 100, 180},
		{"ExtremeOver", 180, 100, 0, 160},
		{"BandEdgeIsFar", 120, 50, 55, 180},
		{"BandEdgeOverIsFar", 120, 55, 50, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, act := newTestController(t, tt.start)
			got, err := c.Adjust(context.Background(), tt.avg, tt.goal)
			if err != nil {
				t.Fatalf("Adjust() err=%v", err)
			}
			if got != tt.want || c.Position() != tt.want {
				t.Fatalf("position = %d, want %d", got, tt.want)
			}
			if len(act.calls) != 1 || act.calls[0] != tt.want {
				t.Fatalf("actuator calls = %v, want [%d]", act.calls, tt.want)
			}
		})
	}
}

func TestAdjust_NeverLeavesLimits(t *testing.T) {
	c, _ := newTestController(t, 130)
	cfg := c.Config()
	for avg := -50; avg <= 150; avg += 7 {
		for goal := -50; goal <= 150; goal += 11 {
			pos, _ := c.Adjust(context.Background(), avg, goal)
			if pos < cfg.OpenLimit || pos > cfg.ClosedLimit {
				t.Fatalf("avg=%d goal=%d produced %d outside [%d,%d]", avg, goal, pos, cfg.OpenLimit, cfg.ClosedLimit)
			}
		}
	}
}

func TestAdjust_ActuatorErrorKeepsPosition(t *testing.T) {
	c, act := newTestController(t, 120)
	act.err = errors.New("bus timeout")

	pos, err := c.Adjust(context.Background(), 80, 50)
	if err == nil {
		t.Fatal("expected actuator error")
	}
	if pos != 100 || c.Position() != 100 {
		t.Fatalf("position = %d, want 100", pos)
	}
}

func TestForceAndOpenPercent(t *testing.T) {
	c, act := newTestController(t, 130)

	if c.OpenPercent() != 50 {
		t.Fatalf("OpenPercent() = %d, want 50", c.OpenPercent())
	}
	if err := c.ForceOpen(context.Background()); err != nil {
		t.Fatalf("ForceOpen() err=%v", err)
	}
	if !c.FullyOpen() || c.OpenPercent() != 100 {
		t.Fatalf("after ForceOpen pos=%d open=%d", c.Position(), c.OpenPercent())
	}
	if err := c.ForceClose(context.Background()); err != nil {
		t.Fatalf("ForceClose() err=%v", err)
	}
	if !c.FullyClosed() || c.OpenPercent() != 0 {
		t.Fatalf("after ForceClose pos=%d open=%d", c.Position(), c.OpenPercent())
	}
	if len(act.calls) != 2 || act.calls[0] != 80 || act.calls[1] != 180 {
		t.Fatalf("actuator calls = %v", act.calls)
	}
}

func TestNew_StartsClosedAndValidates(t *testing.T) {
	c, err := New(DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if !c.FullyClosed() {
		t.Fatalf("initial position = %d, want closed", c.Position())
	}

	bad := DefaultConfig()
	bad.OpenLimit = 200
	if _, err := New(bad, nil, nil); !errors.Is(err, ErrInvalidLimits) {
		t.Fatalf("expected ErrInvalidLimits, got %v", err)
	}
	bad = DefaultConfig()
	bad.NearBand = 0
	if _, err := New(bad, nil, nil); !errors.Is(err, ErrInvalidLimits) {
		t.Fatalf("expected ErrInvalidLimits, got %v", err)
	}
}

func TestPark_CommandsClosedLimit(t *testing.T) {
	c, act := newTestController(t, 95)
	if err := c.Park(context.Background()); err != nil {
		t.Fatalf("Park() err=%v", err)
	}
	if c.Position() != 180 || len(act.calls) != 1 || act.calls[0] != 180 {
		t.Fatalf("position=%d calls=%v, want 180 and [180]", c.Position(), act.calls)
	}

	act.err = errors.New("no ack")
	if err := c.Park(context.Background()); !errors.Is(err, act.err) {
		t.Fatalf("Park() err=%v, want actuator error", err)
	}
}
