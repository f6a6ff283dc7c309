package hardware

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusConfig addresses a PLC or I/O module exposing the float as an input
// register and the servo as a holding register.
// Address is host:port for TCP or a device path for RTU.
type ModbusConfig struct {
	Address       string        `mapstructure:"address" yaml:"address"`
	UnitID        uint8         `mapstructure:"unit_id" yaml:"unit_id"`
	BaudRate      int           `mapstructure:"baud_rate" yaml:"baud_rate"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LevelRegister uint16        `mapstructure:"level_register" yaml:"level_register"`
	ValveRegister uint16        `mapstructure:"valve_register" yaml:"valve_register"`
}

// registerClient is the subset of modbus.Client the driver uses.
type registerClient interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

type closer interface {
	Close() error
}

// ModbusDevice serializes requests on one connection.
type ModbusDevice struct {
	mu      sync.Mutex
	handler closer
	client  registerClient
	cfg     ModbusConfig
}

func isSerialPath(addr string) bool {
	return strings.HasPrefix(addr, "/dev/") || strings.HasPrefix(strings.ToUpper(addr), "COM")
}

func OpenModbus(cfg ModbusConfig) (*ModbusDevice, error) {
	if cfg.Address == "" {
		return nil, errors.New("hardware modbus: address required")
	}

	if isSerialPath(cfg.Address) {
		h := modbus.NewRTUClientHandler(cfg.Address)
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.SlaveId = cfg.UnitID
		h.Timeout = cfg.Timeout
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("hardware modbus: connect %s: %w", cfg.Address, err)
		}
		return &ModbusDevice{handler: h, client: modbus.NewClient(h), cfg: cfg}, nil
	}

	h := modbus.NewTCPClientHandler(cfg.Address)
	h.SlaveId = cfg.UnitID
	h.Timeout = cfg.Timeout
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("hardware modbus: connect %s: %w", cfg.Address, err)
	}
	return &ModbusDevice{handler: h, client: modbus.NewClient(h), cfg: cfg}, nil
}

func (d *ModbusDevice) ReadRawPosition(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.client.ReadInputRegisters(d.cfg.LevelRegister, 1)
	if err != nil {
		return 0, fmt.Errorf("hardware modbus: read register %d: %w", d.cfg.LevelRegister, err)
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("hardware modbus: short response (%d bytes)", len(b))
	}
	return int(binary.BigEndian.Uint16(b)), nil
}

func (d *ModbusDevice) SetPosition(ctx context.Context, pos int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pos < 0 || pos > 0xFFFF {
		return fmt.Errorf("hardware modbus: position %d does not fit a register", pos)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.client.WriteSingleRegister(d.cfg.ValveRegister, uint16(pos)); err != nil {
		return fmt.Errorf("hardware modbus: write register %d: %w", d.cfg.ValveRegister, err)
	}
	return nil
}

func (d *ModbusDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler == nil {
		return nil
	}
	return d.handler.Close()
}
