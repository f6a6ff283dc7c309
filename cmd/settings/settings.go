package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sumwatshade/tidevalve/cmd/calibration"
	"github.com/sumwatshade/tidevalve/cmd/control"
	"github.com/sumwatshade/tidevalve/cmd/goal"
	"github.com/sumwatshade/tidevalve/cmd/hardware"
	"github.com/sumwatshade/tidevalve/cmd/logging"
	"github.com/sumwatshade/tidevalve/cmd/status"
	"github.com/sumwatshade/tidevalve/cmd/tide"
	"github.com/sumwatshade/tidevalve/cmd/valve"
)

// EnvPrefix namespaces environment overrides, e.g. TIDEVALVE_TIDE_STATION.
const EnvPrefix = "TIDEVALVE"

type Settings struct {
	Calibration CalibrationSettings `mapstructure:"calibration" yaml:"calibration"`
	Control     control.Config      `mapstructure:"control" yaml:"control"`
	Valve       valve.Config        `mapstructure:"valve" yaml:"valve"`
	Tide        TideSettings        `mapstructure:"tide" yaml:"tide"`
	Hardware    hardware.Config     `mapstructure:"hardware" yaml:"hardware"`
	Status      StatusSettings      `mapstructure:"status" yaml:"status"`
	Events      EventsSettings      `mapstructure:"events" yaml:"events"`
	HTTP        HTTPSettings        `mapstructure:"http" yaml:"http"`
	Log         logging.Config      `mapstructure:"log" yaml:"log"`
}

type CalibrationSettings struct {
	Path        string `mapstructure:"path" yaml:"path"`
	DefaultLow  int    `mapstructure:"default_low" yaml:"default_low"`
	DefaultHigh int    `mapstructure:"default_high" yaml:"default_high"`
}

func (c CalibrationSettings) Default() calibration.Calibration {
	return calibration.Calibration{Low: c.DefaultLow, High: c.DefaultHigh}
}

type TideSettings struct {
	tide.Config       `mapstructure:",squash" yaml:",inline"`
	ConnectedInterval time.Duration `mapstructure:"connected_interval" yaml:"connected_interval"`
	RetryInterval     time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`
	Low               float64       `mapstructure:"low" yaml:"low"`
	High              float64       `mapstructure:"high" yaml:"high"`
	History           int           `mapstructure:"history" yaml:"history"`
}

func (t TideSettings) Mapper() goal.Mapper {
	return goal.Mapper{TideLow: t.Low, TideHigh: t.High}
}

type StatusSettings struct {
	Redis RedisSettings `mapstructure:"redis" yaml:"redis"`
	MQTT  MQTTSettings  `mapstructure:"mqtt" yaml:"mqtt"`
}

type RedisSettings struct {
	Enabled            bool `mapstructure:"enabled" yaml:"enabled"`
	status.RedisConfig `mapstructure:",squash" yaml:",inline"`
}

type MQTTSettings struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	status.MQTTConfig `mapstructure:",squash" yaml:",inline"`
}

type EventsSettings struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Limit int    `mapstructure:"limit" yaml:"limit"`
}

type HTTPSettings struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers every key so env overrides and AllSettings see them.
// home is the base for on-disk state (~/.tidevalve). Durations are registered
// as strings so written config files stay readable.
func SetDefaults(v *viper.Viper, home string) {
	base := filepath.Join(home, ".tidevalve")

	v.SetDefault("calibration.path", filepath.Join(base, "calibration.bin"))
	v.SetDefault("calibration.default_low", 0)
	v.SetDefault("calibration.default_high", calibration.SensorMax)

	cc := control.DefaultConfig()
	v.SetDefault("control.sample_interval", cc.SampleInterval.String())
	v.SetDefault("control.reset_interval", cc.ResetInterval.String())
	v.SetDefault("control.window_size", cc.WindowSize)
	v.SetDefault("control.publish_timeout", cc.PublishTimeout.String())

	vc := valve.DefaultConfig()
	v.SetDefault("valve.open_limit", vc.OpenLimit)
	v.SetDefault("valve.closed_limit", vc.ClosedLimit)
	v.SetDefault("valve.near_band", vc.NearBand)
	v.SetDefault("valve.close_step", vc.CloseStep)
	v.SetDefault("valve.open_step", vc.OpenStep)
	v.SetDefault("valve.far_open_step", vc.FarOpenStep)

	tc := tide.DefaultConfig()
	v.SetDefault("tide.base_url", tc.BaseURL)
	v.SetDefault("tide.station", tc.Station)
	v.SetDefault("tide.product", tc.Product)
	v.SetDefault("tide.datum", tc.Datum)
	v.SetDefault("tide.units", tc.Units)
	v.SetDefault("tide.time_zone", tc.TimeZone)
	v.SetDefault("tide.format", tc.Format)
	v.SetDefault("tide.marker", tc.Marker)
	v.SetDefault("tide.timeout", tc.Timeout.String())
	v.SetDefault("tide.connected_interval", tide.DefaultConnectedInterval.String())
	v.SetDefault("tide.retry_interval", tide.DefaultRetryInterval.String())
	v.SetDefault("tide.low", goal.DefaultTideLow)
	v.SetDefault("tide.high", goal.DefaultTideHigh)
	v.SetDefault("tide.history", tide.DefaultHistory)

	hc := hardware.DefaultConfig()
	v.SetDefault("hardware.kind", hc.Kind)
	v.SetDefault("hardware.modbus.address", hc.Modbus.Address)
	v.SetDefault("hardware.modbus.unit_id", hc.Modbus.UnitID)
	v.SetDefault("hardware.modbus.baud_rate", hc.Modbus.BaudRate)
	v.SetDefault("hardware.modbus.timeout", hc.Modbus.Timeout.String())
	v.SetDefault("hardware.modbus.level_register", hc.Modbus.LevelRegister)
	v.SetDefault("hardware.modbus.valve_register", hc.Modbus.ValveRegister)
	v.SetDefault("hardware.serial.port", hc.Serial.Port)
	v.SetDefault("hardware.serial.baud_rate", hc.Serial.BaudRate)
	v.SetDefault("hardware.serial.timeout", hc.Serial.Timeout.String())
	v.SetDefault("hardware.sim.start", hc.Sim.Start)
	v.SetDefault("hardware.sim.fill_rate", hc.Sim.FillRate)
	v.SetDefault("hardware.sim.drain_rate", hc.Sim.DrainRate)
	v.SetDefault("hardware.sim.noise", hc.Sim.Noise)
	v.SetDefault("hardware.sim.open_limit", hc.Sim.OpenLimit)
	v.SetDefault("hardware.sim.closed_limit", hc.Sim.ClosedLimit)

	v.SetDefault("status.redis.enabled", false)
	v.SetDefault("status.redis.addr", "127.0.0.1:6379")
	v.SetDefault("status.redis.db", 0)
	v.SetDefault("status.redis.key", "tidevalve")
	v.SetDefault("status.redis.channel", "tidevalve")
	v.SetDefault("status.redis.timeout", "100ms")
	v.SetDefault("status.mqtt.enabled", false)
	v.SetDefault("status.mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("status.mqtt.client_id", "tidevalve")
	v.SetDefault("status.mqtt.topic", "tidevalve/status")
	v.SetDefault("status.mqtt.qos", 0)
	v.SetDefault("status.mqtt.retain", true)

	v.SetDefault("events.dir", filepath.Join(base, "events"))
	v.SetDefault("events.limit", 500)

	v.SetDefault("http.addr", "127.0.0.1:8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(base, "tidevalve.log"))
	v.SetDefault("log.stderr", false)
}

// BindEnv enables TIDEVALVE_SECTION_KEY overrides.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the merged configuration and validates it.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate s.
func Validate(s *Settings) error {
	var errs []error

	if err := s.Valve.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Calibration.Path == "" {
		errs = append(errs, errors.New("calibration.path is required"))
	}
	if err := s.Calibration.Default().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("calibration defaults: %w", err))
	}
	for name, v := range map[string]int{"default_low": s.Calibration.DefaultLow, "default_high": s.Calibration.DefaultHigh} {
		if v < 0 || v > calibration.SensorMax {
			errs = append(errs, fmt.Errorf("calibration.%s %d outside [0,%d]", name, v, calibration.SensorMax))
		}
	}

	if s.Control.SampleInterval <= 0 {
		errs = append(errs, errors.New("control.sample_interval must be > 0"))
	}
	if s.Control.WindowSize <= 0 {
		errs = append(errs, errors.New("control.window_size must be > 0"))
	}
	if s.Control.ResetInterval < s.Control.SampleInterval {
		errs = append(errs, errors.New("control.reset_interval must not be shorter than control.sample_interval"))
	}
	if s.Control.PublishTimeout < 0 {
		errs = append(errs, errors.New("control.publish_timeout must not be negative"))
	}

	if _, err := goal.NewMapper(s.Tide.Low, s.Tide.High); err != nil {
		errs = append(errs, err)
	}
	if s.Tide.BaseURL == "" || s.Tide.Station == "" {
		errs = append(errs, errors.New("tide.base_url and tide.station are required"))
	}
	if s.Tide.Timeout <= 0 || s.Tide.ConnectedInterval <= 0 || s.Tide.RetryInterval <= 0 {
		errs = append(errs, errors.New("tide timeout and intervals must be > 0"))
	}

	switch s.Hardware.Kind {
	case hardware.KindSim, hardware.KindModbus, hardware.KindSerial:
	default:
		errs = append(errs, fmt.Errorf("hardware.kind %q must be one of sim, modbus, serial", s.Hardware.Kind))
	}

	if s.Status.MQTT.Enabled && s.Status.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("status.mqtt.qos %d must be 0, 1 or 2", s.Status.MQTT.QoS))
	}

	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
