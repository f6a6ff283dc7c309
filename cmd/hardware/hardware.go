package hardware

import (
	"fmt"
	"io"
	"time"

	"github.com/sumwatshade/tidevalve/cmd/level"
	"github.com/sumwatshade/tidevalve/cmd/valve"
)

// Device is the float sensor and valve servo behind one connection.
type Device interface {
	level.Sensor
	valve.Actuator
	io.Closer
}

const (
	KindSim    = "sim"
	KindModbus = "modbus"
	KindSerial = "serial"
)

type Config struct {
	Kind   string       `mapstructure:"kind" yaml:"kind"`
	Modbus ModbusConfig `mapstructure:"modbus" yaml:"modbus"`
	Serial SerialConfig `mapstructure:"serial" yaml:"serial"`
	Sim    SimConfig    `mapstructure:"sim" yaml:"sim"`
}

func DefaultConfig() Config {
	return Config{
		Kind: KindSim,
		Modbus: ModbusConfig{
			Address:       "127.0.0.1:502",
			UnitID:        1,
			BaudRate:      9600,
			Timeout:       time.Second,
			LevelRegister: 0,
			ValveRegister: 0,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 9600,
			Timeout:  time.Second,
		},
		Sim: DefaultSimConfig(),
	}
}

// Open connects the configured driver.
func Open(cfg Config) (Device, error) {
	switch cfg.Kind {
	case KindSim, "":
		return NewSim(cfg.Sim, time.Now), nil
	case KindModbus:
		d, err := OpenModbus(cfg.Modbus)
		if err != nil {
			return nil, err
		}
		return d, nil
	case KindSerial:
		d, err := OpenSerial(cfg.Serial)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("hardware: unknown kind %q", cfg.Kind)
	}
}
