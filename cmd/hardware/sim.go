package hardware

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sumwatshade/tidevalve/cmd/calibration"
)

// SimConfig models a tank with constant inflow and a drain throttled by the valve.
// Rates are in raw sensor units per second.
type SimConfig struct {
	Start       float64 `mapstructure:"start" yaml:"start"`
	FillRate    float64 `mapstructure:"fill_rate" yaml:"fill_rate"`
	DrainRate   float64 `mapstructure:"drain_rate" yaml:"drain_rate"`
	Noise       float64 `mapstructure:"noise" yaml:"noise"`
	OpenLimit   int     `mapstructure:"open_limit" yaml:"open_limit"`
	ClosedLimit int     `mapstructure:"closed_limit" yaml:"closed_limit"`
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		Start:       400,
		FillRate:    4,
		DrainRate:   10,
		Noise:       3,
		OpenLimit:   80,
		ClosedLimit: 180,
	}
}

// Sim is an in-process stand-in for the rig.
type Sim struct {
	mu    sync.Mutex
	cfg   SimConfig
	now   func() time.Time
	rng   *rand.Rand
	level float64
	pos   int
	last  time.Time
}

func NewSim(cfg SimConfig, now func() time.Time) *Sim {
	if cfg.ClosedLimit <= cfg.OpenLimit {
		d := DefaultSimConfig()
		cfg.OpenLimit, cfg.ClosedLimit = d.OpenLimit, d.ClosedLimit
	}
	return &Sim{
		cfg:   cfg,
		now:   now,
		rng:   rand.New(rand.NewSource(1)),
		level: cfg.Start,
		pos:   cfg.ClosedLimit,
		last:  now(),
	}
}

// advance integrates the tank level since the previous call.
func (s *Sim) advance() {
	t := s.now()
	dt := t.Sub(s.last).Seconds()
	s.last = t
	if dt <= 0 {
		return
	}
	open := float64(s.cfg.ClosedLimit-s.pos) / float64(s.cfg.ClosedLimit-s.cfg.OpenLimit)
	s.level += (s.cfg.FillRate - s.cfg.DrainRate*open) * dt
	s.level = math.Max(0, math.Min(calibration.SensorMax, s.level))
}

func (s *Sim) ReadRawPosition(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	v := s.level
	if s.cfg.Noise > 0 {
		v += (s.rng.Float64()*2 - 1) * s.cfg.Noise
	}
	return int(math.Max(0, math.Min(calibration.SensorMax, math.Round(v)))), nil
}

func (s *Sim) SetPosition(_ context.Context, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	if pos < s.cfg.OpenLimit {
		pos = s.cfg.OpenLimit
	}
	if pos > s.cfg.ClosedLimit {
		pos = s.cfg.ClosedLimit
	}
	s.pos = pos
	return nil
}

// Level returns the noiseless tank level.
func (s *Sim) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *Sim) Close() error { return nil }
