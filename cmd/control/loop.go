package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sumwatshade/tidevalve/cmd/calibration"
	"github.com/sumwatshade/tidevalve/cmd/events"
	"github.com/sumwatshade/tidevalve/cmd/goal"
	"github.com/sumwatshade/tidevalve/cmd/level"
	"github.com/sumwatshade/tidevalve/cmd/status"
	"github.com/sumwatshade/tidevalve/cmd/tide"
	"github.com/sumwatshade/tidevalve/cmd/valve"
)

var ErrHalted = errors.New("control: loop halted")

// Config is the loop timing.
type Config struct {
	SampleInterval time.Duration `mapstructure:"sample_interval" yaml:"sample_interval"`
	ResetInterval  time.Duration `mapstructure:"reset_interval" yaml:"reset_interval"`
	WindowSize     int           `mapstructure:"window_size" yaml:"window_size"`
	// PublishTimeout bounds each status publish so a slow sink cannot hold up sampling.
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
}

func DefaultConfig() Config {
	return Config{
		SampleInterval: 200 * time.Millisecond,
		ResetInterval:  time.Hour,
		WindowSize:     level.DefaultWindowSize,
		PublishTimeout: 100 * time.Millisecond,
	}
}

// Observer receives counters. metrics.Metrics satisfies it.
type Observer interface {
	FetchAttempt(err error)
	Action(name string)
	SensorError()
	ActuatorError()
	Adjusted()
}

type nopObserver struct{}

func (nopObserver) FetchAttempt(error) {}
func (nopObserver) Action(string)      {}
func (nopObserver) SensorError()       {}
func (nopObserver) ActuatorError()     {}
func (nopObserver) Adjusted()          {}

// Deps wires the loop to its collaborators. Sink, Events, Observer and Log are optional.
type Deps struct {
	Sensor   level.Sensor
	Valve    *valve.Controller
	Tide     *tide.Source
	Goal     goal.Mapper
	Store    calibration.Store
	Fallback calibration.Calibration
	Sink     status.Sink
	Events   events.Service
	Observer Observer
	Log      *slog.Logger
}

// Loop is the single owner of the control state. None of its methods are
// safe for concurrent use; shells serialize all calls.
type Loop struct {
	cfg Config
	d   Deps

	window *level.Window
	st     State
}

// New loads the calibration (falling back per endpoint to d.Fallback),
// commands the valve closed and returns a running loop. A failed park is
// reported as an actuator fault and retried, it does not fail New.
func New(ctx context.Context, cfg Config, d Deps) (*Loop, error) {
	if d.Sensor == nil || d.Valve == nil || d.Tide == nil || d.Store == nil {
		return nil, errors.New("control: sensor, valve, tide and store are required")
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultConfig().SampleInterval
	}
	if cfg.ResetInterval <= 0 {
		cfg.ResetInterval = DefaultConfig().ResetInterval
	}
	if cfg.PublishTimeout <= 0 || cfg.PublishTimeout > cfg.SampleInterval {
		cfg.PublishTimeout = cfg.SampleInterval / 2
	}
	if d.Events == nil {
		d.Events = events.NewMemoryService(events.DefaultLimit)
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	l := &Loop{cfg: cfg, d: d, window: level.NewWindow(cfg.WindowSize)}

	cal, err := d.Store.Load()
	if err != nil {
		cal = cal.Fill(d.Fallback)
		d.Log.Warn("calibration incomplete, using defaults", "err", err, "low", cal.Low, "high", cal.High)
	}
	if err := cal.Validate(); err != nil {
		d.Log.Warn("loaded calibration is not increasing, percentages will be inverted", "err", err)
	}
	l.st.Cal = cal
	l.st.Mode = Running
	l.park(ctx, time.Now())
	return l, nil
}

// Dispatch applies one operator action.
func (l *Loop) Dispatch(ctx context.Context, now time.Time, a Action) error {
	if l.Halted() {
		return ErrHalted
	}
	l.d.Observer.Action(a.String())
	log := l.d.Log.With("action", a.String())

	switch a {
	case ForceOpen, ForceClose:
		var err error
		if a == ForceOpen {
			err = l.d.Valve.ForceOpen(ctx)
			l.st.Mode = HaltedOpen
		} else {
			err = l.d.Valve.ForceClose(ctx)
			l.st.Mode = HaltedClosed
		}
		l.actuated(err)
		if err != nil {
			log.Error("halt command failed", "err", err)
		}
		l.record(now, events.KindAction, fmt.Sprintf("%s: valve at %d, control halted", a, l.d.Valve.Position()))
		log.Info("control halted", "mode", l.st.Mode.String(), "position", l.d.Valve.Position())
		l.publish(ctx, now)
		return err

	case SetMax, SetMin:
		endpoint := calibration.High
		if a == SetMin {
			endpoint = calibration.Low
		}
		if err := l.calibrate(ctx, now, endpoint); err != nil {
			l.record(now, events.KindFault, fmt.Sprintf("%s rejected: %v", a, err))
			log.Error("calibration rejected", "err", err)
			return err
		}
		l.record(now, events.KindCalibration, fmt.Sprintf("%s: %s", a, l.st.Cal))
		log.Info("calibration saved", "low", l.st.Cal.Low, "high", l.st.Cal.High)
		l.publish(ctx, now)
		return nil

	case FetchNow:
		l.st.ForceFetch = true
		log.Info("tide fetch requested")
		return nil
	}
	return fmt.Errorf("control: unsupported action %s", a)
}

// calibrate stores the current raw reading as one endpoint. A reading
// that would make the calibration degenerate is rejected and nothing is written.
func (l *Loop) calibrate(ctx context.Context, now time.Time, e calibration.Endpoint) error {
	raw, err := l.d.Sensor.ReadRawPosition(ctx)
	if err != nil {
		l.d.Observer.SensorError()
		return fmt.Errorf("read sensor: %w", err)
	}
	next, err := l.st.Cal.With(e, raw)
	if err != nil {
		return err
	}
	if err := l.d.Store.Save(e, raw); err != nil {
		return fmt.Errorf("save %s: %w", e, err)
	}
	l.st.Cal = next
	l.st.Raw = raw
	l.st.Level = level.Percent(raw, next)
	// samples taken against the old calibration are not comparable
	l.window.Reset()
	return nil
}

// BeginFetch reports whether a tide fetch should start now, either because
// the schedule says so or an operator forced it. At most one fetch is in flight.
func (l *Loop) BeginFetch(now time.Time) bool {
	if l.Halted() || l.st.Fetching {
		return false
	}
	if !l.st.ForceFetch && !l.d.Tide.Due(now) {
		return false
	}
	l.st.ForceFetch = false
	l.st.Fetching = true
	return true
}

// ApplyFetch records the outcome of a fetch that started at `started`.
func (l *Loop) ApplyFetch(started time.Time, height float64, err error) {
	l.st.Fetching = false
	prev := l.d.Tide.State()
	l.d.Tide.Record(started, height, err)
	l.d.Observer.FetchAttempt(err)

	if err != nil {
		l.d.Log.Warn("tide fetch failed, keeping last height", "err", err, "retry_at", l.d.Tide.NextDue())
		if prev == tide.Connected {
			l.record(started, events.KindTide, "tide source lost: "+err.Error())
		}
		return
	}

	l.st.Goal = l.d.Goal.Percent(height)
	l.st.GoalOOR = l.d.Goal.OutOfRange(height)
	l.st.HaveGoal = true
	l.d.Log.Info("tide updated", "height_ft", height, "goal_pct", l.st.Goal, "next_fetch", l.d.Tide.NextDue())
	if l.st.GoalOOR {
		l.d.Log.Warn("tide height outside mapped range, goal extrapolated", "height_ft", height, "goal_pct", l.st.Goal)
	}
	if prev != tide.Connected {
		l.record(started, events.KindTide, fmt.Sprintf("tide source connected: %.2f ft", height))
	}
}

// FetchIfDue runs a bounded synchronous fetch when one is due.
func (l *Loop) FetchIfDue(ctx context.Context, now time.Time) {
	if !l.BeginFetch(now) {
		return
	}
	h, err := tide.FetchWithTimeout(ctx, l.d.Tide.Fetcher(), l.d.Tide.Timeout())
	l.ApplyFetch(now, h, err)
}

// Tick takes one sample. Every WindowSize samples the averaged level is
// compared to the goal and the valve is adjusted once.
func (l *Loop) Tick(ctx context.Context, now time.Time) error {
	if l.Halted() {
		return ErrHalted
	}
	if l.st.LastReset.IsZero() {
		l.st.LastReset = now
	} else if now.Sub(l.st.LastReset) >= l.cfg.ResetInterval {
		l.resetTransients(now)
	}
	l.st.LastSample = now

	raw, err := l.d.Sensor.ReadRawPosition(ctx)
	if err != nil {
		l.d.Observer.SensorError()
		l.st.SensorErr = fmt.Errorf("read sensor: %w", err)
		l.d.Log.Warn("sensor read failed, sample skipped", "err", err)
		return nil
	}
	l.st.SensorErr = nil
	l.st.Raw = raw
	l.st.Level = level.Percent(raw, l.st.Cal)

	avg, ready := l.window.Add(l.st.Level)
	if !ready {
		return nil
	}
	l.st.Average = avg
	l.st.HaveAverage = true
	oor := level.OutOfRange(avg)
	if oor && !l.st.LevelOOR {
		l.d.Log.Warn("average level outside calibrated range", "average_pct", avg, "raw", raw, "low", l.st.Cal.Low, "high", l.st.Cal.High)
		l.record(now, events.KindFault, fmt.Sprintf("level %d%% outside calibrated range", avg))
	}
	l.st.LevelOOR = oor

	if !l.st.HaveGoal {
		l.d.Log.Debug("no tide reading yet, valve held", "average_pct", avg)
		if !l.st.Commanded {
			l.park(ctx, now)
		}
		l.publish(ctx, now)
		return nil
	}

	prev := l.d.Valve.Position()
	pos, err := l.d.Valve.Adjust(ctx, avg, l.st.Goal)
	l.d.Observer.Adjusted()
	l.actuated(err)
	if err != nil {
		l.d.Log.Error("valve command failed", "err", err, "position", pos)
	}
	if pos != prev {
		l.d.Log.Info("valve moved", "from", prev, "to", pos, "open_pct", l.d.Valve.OpenPercent(), "average_pct", avg, "goal_pct", l.st.Goal)
	}
	l.publish(ctx, now)
	return nil
}

// resetTransients clears accumulated per-run state in place of a periodic restart.
// Calibration, valve position and the last tide height survive.
func (l *Loop) resetTransients(now time.Time) {
	l.window.Reset()
	l.st.LevelOOR = false
	l.st.SensorErr = nil
	l.st.LastReset = now
	l.d.Log.Info("transient state reset")
	l.record(now, events.KindReset, "transient state reset")
}

func (l *Loop) Halted() bool { return l.st.Mode != Running }

// State returns a copy of the loop state.
func (l *Loop) State() State { return l.st }

func (l *Loop) Tide() *tide.Source { return l.d.Tide }

func (l *Loop) Events() events.Service { return l.d.Events }

func (l *Loop) Valve() *valve.Controller { return l.d.Valve }

// SampleInterval is how often shells should call Tick.
func (l *Loop) SampleInterval() time.Duration { return l.cfg.SampleInterval }

// Snapshot describes the current state for display sinks.
func (l *Loop) Snapshot(now time.Time) status.Snapshot {
	h, haveTide := l.d.Tide.Height()
	s := status.Snapshot{
		At:            now,
		Mode:          l.st.Mode.String(),
		RawLevel:      l.st.Raw,
		Level:         l.st.Level,
		AverageLevel:  l.st.Average,
		HaveAverage:   l.st.HaveAverage,
		LevelOOR:      l.st.LevelOOR,
		WindowPending: l.window.Pending(),
		WindowSize:    l.window.Size(),
		TideHeight:    h,
		HaveTide:      haveTide,
		TideState:     l.d.Tide.State().String(),
		NextFetch:     l.d.Tide.NextDue(),
		Goal:          l.st.Goal,
		GoalOOR:       l.st.GoalOOR,
		ValvePosition: l.d.Valve.Position(),
		ValveOpenPct:  l.d.Valve.OpenPercent(),
		CalLow:        l.st.Cal.Low,
		CalHigh:       l.st.Cal.High,
	}
	switch {
	case l.Halted():
		s.Indicator = status.Halted
	case l.st.ActuatorErr != nil:
		s.Indicator = status.Fault
		s.Message = l.st.ActuatorErr.Error()
	case l.st.SensorErr != nil:
		s.Indicator = status.Fault
		s.Message = l.st.SensorErr.Error()
	case !haveTide || l.d.Tide.State() != tide.Connected:
		s.Indicator = status.Stale
		if err := l.d.Tide.LastError(); err != nil {
			s.Message = err.Error()
		}
	default:
		s.Indicator = status.OK
	}
	return s
}

// park drives the valve to its closed start position.
func (l *Loop) park(ctx context.Context, now time.Time) {
	err := l.d.Valve.Park(ctx)
	l.actuated(err)
	if err != nil {
		l.d.Log.Error("could not park valve closed", "err", err)
		l.record(now, events.KindFault, "valve park failed: "+err.Error())
	}
}

// actuated books the outcome of a valve command.
func (l *Loop) actuated(err error) {
	if err != nil {
		l.d.Observer.ActuatorError()
		l.st.ActuatorErr = err
		return
	}
	l.st.ActuatorErr = nil
	l.st.Commanded = true
}

func (l *Loop) publish(ctx context.Context, now time.Time) {
	if l.d.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.cfg.PublishTimeout)
	defer cancel()
	if err := l.d.Sink.Show(ctx, l.Snapshot(now)); err != nil {
		l.d.Log.Warn("status sink failed", "err", err)
	}
}

func (l *Loop) record(at time.Time, kind events.Kind, msg string) {
	if _, err := l.d.Events.Record(at, kind, msg); err != nil {
		l.d.Log.Warn("event not recorded", "err", err, "kind", string(kind))
	}
}
