package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sumwatshade/tidevalve/cmd/calibration"
	"github.com/sumwatshade/tidevalve/cmd/control"
	"github.com/sumwatshade/tidevalve/cmd/events"
	"github.com/sumwatshade/tidevalve/cmd/hardware"
	"github.com/sumwatshade/tidevalve/cmd/metrics"
	"github.com/sumwatshade/tidevalve/cmd/settings"
	"github.com/sumwatshade/tidevalve/cmd/status"
	"github.com/sumwatshade/tidevalve/cmd/tide"
	"github.com/sumwatshade/tidevalve/cmd/valve"
)

// runtime is everything a shell needs to drive the control loop.
type runtime struct {
	settings settings.Settings
	log      *slog.Logger
	loop     *control.Loop
	events   events.Service
	metrics  *metrics.Metrics
	latest   *status.Latest
	closers  []func() error
}

func newRuntime(ctx context.Context, s settings.Settings, log *slog.Logger) (*runtime, error) {
	rt := &runtime{settings: s, log: log}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	hw := s.Hardware
	hw.Sim.OpenLimit, hw.Sim.ClosedLimit = s.Valve.OpenLimit, s.Valve.ClosedLimit
	dev, err := hardware.Open(hw)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, dev.Close)
	log.Info("hardware opened", "kind", hw.Kind)

	store, err := calibration.NewFileStore(s.Calibration.Path)
	if err != nil {
		return nil, fmt.Errorf("calibration store: %w", err)
	}

	evs, err := events.NewFileService(s.Events.Dir, s.Events.Limit)
	if err != nil {
		return nil, fmt.Errorf("event journal: %w", err)
	}
	rt.events = evs

	v, err := valve.New(s.Valve, dev, log.With("component", "valve"))
	if err != nil {
		return nil, err
	}

	src := tide.NewSource(tide.NewService(s.Tide.Config),
		tide.WithIntervals(s.Tide.ConnectedInterval, s.Tide.RetryInterval),
		tide.WithTimeout(s.Tide.Timeout),
		tide.WithHistory(s.Tide.History),
	)

	rt.metrics = metrics.New()
	rt.latest = status.NewLatest()
	sinks := status.Multi{rt.latest, rt.metrics}

	if s.Status.Redis.Enabled {
		r := status.NewRedisSink(s.Status.Redis.RedisConfig)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, will keep retrying", "addr", s.Status.Redis.Addr, "err", err)
		}
		cancel()
		sinks = append(sinks, r)
		rt.closers = append(rt.closers, r.Close)
	}
	if s.Status.MQTT.Enabled {
		m, err := status.NewMQTTSink(s.Status.MQTT.MQTTConfig)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, m)
		rt.closers = append(rt.closers, func() error { m.Close(); return nil })
	}

	loop, err := control.New(ctx, s.Control, control.Deps{
		Sensor:   dev,
		Valve:    v,
		Tide:     src,
		Goal:     s.Tide.Mapper(),
		Store:    store,
		Fallback: s.Calibration.Default(),
		Sink:     sinks,
		Events:   rt.events,
		Observer: rt.metrics,
		Log:      log.With("component", "control"),
	})
	if err != nil {
		return nil, err
	}
	rt.loop = loop
	ok = true
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn("close failed", "err", err)
		}
	}
	rt.closers = nil
}
