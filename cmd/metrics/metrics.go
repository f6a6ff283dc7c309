package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sumwatshade/tidevalve/cmd/status"
)

// Metrics exports the control state and loop counters.
// It is a status.Sink for the gauges and a control observer for the counters.
type Metrics struct {
	registry *prometheus.Registry

	level         prometheus.Gauge
	average       prometheus.Gauge
	goal          prometheus.Gauge
	tideHeight    prometheus.Gauge
	valvePosition prometheus.Gauge
	valveOpen     prometheus.Gauge
	outOfRange    *prometheus.GaugeVec
	indicator     prometheus.Gauge

	fetches        *prometheus.CounterVec
	actions        *prometheus.CounterVec
	sensorErrors   prometheus.Counter
	actuatorErrors prometheus.Counter
	adjustments    prometheus.Counter
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_level_percent",
			Help: "Instantaneous tank level in percent of calibrated range.",
		}),
		average: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_average_level_percent",
			Help: "Windowed average tank level used for control.",
		}),
		goal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_goal_percent",
			Help: "Goal level derived from the latest tide height.",
		}),
		tideHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_tide_height_feet",
			Help: "Latest fetched tide height above MLLW.",
		}),
		valvePosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_valve_position",
			Help: "Commanded valve position in actuator units.",
		}),
		valveOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_valve_open_percent",
			Help: "Commanded valve openness (0 closed, 100 open).",
		}),
		outOfRange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tidevalve_out_of_range",
			Help: "1 while a mapped signal is outside its nominal range.",
		}, []string{"signal"}),
		indicator: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidevalve_indicator",
			Help: "Status indicator (0 ok, 1 stale, 2 halted, 3 fault).",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidevalve_tide_fetches_total",
			Help: "Tide fetch attempts by result.",
		}, []string{"result"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidevalve_actions_total",
			Help: "Operator actions by name.",
		}, []string{"action"}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidevalve_sensor_errors_total",
			Help: "Failed level sensor reads.",
		}),
		actuatorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidevalve_actuator_errors_total",
			Help: "Failed valve commands.",
		}),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidevalve_adjustments_total",
			Help: "Valve adjustments triggered by a completed sample window.",
		}),
	}

	m.registry.MustRegister(
		m.level,
		m.average,
		m.goal,
		m.tideHeight,
		m.valvePosition,
		m.valveOpen,
		m.outOfRange,
		m.indicator,
		m.fetches,
		m.actions,
		m.sensorErrors,
		m.actuatorErrors,
		m.adjustments,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

var _ status.Sink = (*Metrics)(nil)

func (m *Metrics) Show(_ context.Context, s status.Snapshot) error {
	m.level.Set(float64(s.Level))
	if s.HaveAverage {
		m.average.Set(float64(s.AverageLevel))
	}
	if s.HaveTide {
		m.goal.Set(float64(s.Goal))
		m.tideHeight.Set(s.TideHeight)
	}
	m.valvePosition.Set(float64(s.ValvePosition))
	m.valveOpen.Set(float64(s.ValveOpenPct))
	m.outOfRange.WithLabelValues("level").Set(boolGauge(s.LevelOOR))
	m.outOfRange.WithLabelValues("goal").Set(boolGauge(s.GoalOOR))
	m.indicator.Set(float64(s.Indicator))
	return nil
}

func (m *Metrics) FetchAttempt(err error) {
	if err != nil {
		m.fetches.WithLabelValues("error").Inc()
		return
	}
	m.fetches.WithLabelValues("ok").Inc()
}

func (m *Metrics) Action(name string) { m.actions.WithLabelValues(name).Inc() }
func (m *Metrics) SensorError()       { m.sensorErrors.Inc() }
func (m *Metrics) ActuatorError()     { m.actuatorErrors.Inc() }
func (m *Metrics) Adjusted()          { m.adjustments.Inc() }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
