package valve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Actuator drives the physical valve. Callers clamp positions before calling SetPosition.
type Actuator interface {
	SetPosition(ctx context.Context, pos int) error
}

// Config holds the plumbing-specific tuning. Lower positions are more open.
type Config struct {
	OpenLimit   int `mapstructure:"open_limit" yaml:"open_limit"`
	ClosedLimit int `mapstructure:"closed_limit" yaml:"closed_limit"`
	NearBand    int `mapstructure:"near_band" yaml:"near_band"`
	CloseStep   int `mapstructure:"close_step" yaml:"close_step"`
	OpenStep    int `mapstructure:"open_step" yaml:"open_step"`
	FarOpenStep int `mapstructure:"far_open_step" yaml:"far_open_step"`
}

// DefaultConfig matches the reference servo and drain.
func DefaultConfig() Config {
	return Config{
		OpenLimit:   80,
		ClosedLimit: 180,
		NearBand:    5,
		CloseStep:   10,
		OpenStep:    10,
		FarOpenStep: 20,
	}
}

var ErrInvalidLimits = errors.New("valve: invalid limits")

func (c Config) Validate() error {
	if c.OpenLimit >= c.ClosedLimit {
		return fmt.Errorf("%w: open_limit %d must be below closed_limit %d", ErrInvalidLimits, c.OpenLimit, c.ClosedLimit)
	}
	if c.NearBand <= 0 {
		return fmt.Errorf("%w: near_band must be > 0", ErrInvalidLimits)
	}
	if c.CloseStep <= 0 || c.OpenStep <= 0 || c.FarOpenStep <= 0 {
		return fmt.Errorf("%w: steps must be > 0", ErrInvalidLimits)
	}
	return nil
}

// Controller owns the valve position. It is not safe for concurrent use;
// the control loop is its only caller.
type Controller struct {
	cfg Config
	act Actuator
	log *slog.Logger
	pos int
}

// New returns a controller tracking ClosedLimit. The actuator is not
// commanded until Park, Adjust or a Force call.
func New(cfg Config, act Actuator, log *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{cfg: cfg, act: act, log: log, pos: cfg.ClosedLimit}, nil
}

// Next computes the position one adjustment would produce without side effects.
//
// Below target the tank fills slowly, so a far miss snaps straight to closed;
// above target it opens by NearBand-dependent steps.
func (c *Controller) Next(avg, goal int) int {
	diff := avg - goal
	near := abs(diff) < c.cfg.NearBand
	pos := c.pos

	switch {
	case avg < goal && near:
		pos += c.cfg.CloseStep
	case avg < goal:
		pos = c.cfg.ClosedLimit
	case avg > goal && near:
		pos -= c.cfg.OpenStep
	case avg > goal:
		pos -= c.cfg.FarOpenStep
	}
	return c.clamp(pos)
}

// Adjust moves the valve toward goal given the latest average level and
// commands the actuator. The returned position is always within limits.
// On actuator failure the tracked position is still updated; the next call retries.
func (c *Controller) Adjust(ctx context.Context, avg, goal int) (int, error) {
	prev := c.pos
	c.pos = c.Next(avg, goal)
	err := c.command(ctx)
	c.log.Debug("valve adjusted", "avg", avg, "goal", goal, "from", prev, "to", c.pos, "open_pct", c.OpenPercent())
	return c.pos, err
}

// Park commands the start position, ClosedLimit, whatever the servo did before.
func (c *Controller) Park(ctx context.Context) error {
	c.pos = c.cfg.ClosedLimit
	c.log.Info("valve parked closed", "pos", c.pos)
	return c.command(ctx)
}

// ForceOpen drives the valve to OpenLimit.
func (c *Controller) ForceOpen(ctx context.Context) error {
	c.pos = c.cfg.OpenLimit
	c.log.Info("valve forced open", "pos", c.pos)
	return c.command(ctx)
}

// ForceClose drives the valve to ClosedLimit.
func (c *Controller) ForceClose(ctx context.Context) error {
	c.pos = c.cfg.ClosedLimit
	c.log.Info("valve forced closed", "pos", c.pos)
	return c.command(ctx)
}

func (c *Controller) Position() int { return c.pos }

func (c *Controller) Config() Config { return c.cfg }

// OpenPercent expresses the position as openness: ClosedLimit is 0, OpenLimit is 100.
func (c *Controller) OpenPercent() int {
	return (c.cfg.ClosedLimit - c.pos) * 100 / (c.cfg.ClosedLimit - c.cfg.OpenLimit)
}

func (c *Controller) FullyOpen() bool   { return c.pos == c.cfg.OpenLimit }
func (c *Controller) FullyClosed() bool { return c.pos == c.cfg.ClosedLimit }

func (c *Controller) command(ctx context.Context) error {
	if c.act == nil {
		return nil
	}
	if err := c.act.SetPosition(ctx, c.pos); err != nil {
		return fmt.Errorf("set valve position %d: %w", c.pos, err)
	}
	return nil
}

func (c *Controller) clamp(pos int) int {
	if pos < c.cfg.OpenLimit {
		return c.cfg.OpenLimit
	}
	if pos > c.cfg.ClosedLimit {
		return c.cfg.ClosedLimit
	}
	return pos
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
