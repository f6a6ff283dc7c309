package hardware

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialConfig is a microcontroller speaking a line protocol:
//
//	R\n        -> <raw>\n
//	S<pos>\n   -> OK\n
type SerialConfig struct {
	Port     string        `mapstructure:"port" yaml:"port"`
	BaudRate int           `mapstructure:"baud_rate" yaml:"baud_rate"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SerialDevice struct {
	mu       sync.Mutex
	rw       io.ReadWriter
	r        *bufio.Reader
	closer   io.Closer
	desynced bool // set after a failed read; a late reply may still arrive
}

// inputFlusher is implemented by serial.Port.
type inputFlusher interface {
	ResetInputBuffer() error
}

func OpenSerial(cfg SerialConfig) (*SerialDevice, error) {
	if cfg.Port == "" {
		return nil, errors.New("hardware serial: port required")
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("hardware serial: open %s: %w", cfg.Port, err)
	}
	if cfg.Timeout > 0 {
		if err := port.SetReadTimeout(cfg.Timeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	return newSerialDevice(port, port), nil
}

func newSerialDevice(rw io.ReadWriter, c io.Closer) *SerialDevice {
	return &SerialDevice{rw: rw, r: bufio.NewReader(rw), closer: c}
}

// Ports lists serial ports for the setup form.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (d *SerialDevice) exchange(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.desynced {
		d.resync()
	}
	if _, err := io.WriteString(d.rw, cmd+"\n"); err != nil {
		return "", fmt.Errorf("hardware serial: write %q: %w", cmd, err)
	}
	line, err := d.r.ReadString('\n')
	if err != nil {
		// a read timeout on go.bug.st/serial returns 0 bytes and io.EOF
		d.r.Reset(d.rw)
		d.desynced = true
		return "", fmt.Errorf("hardware serial: read reply to %q: %w", cmd, err)
	}
	return strings.TrimSpace(line), nil
}

// resync drops anything received since the last failed read so the next
// reply is matched to the next command.
func (d *SerialDevice) resync() {
	if f, ok := d.rw.(inputFlusher); ok {
		_ = f.ResetInputBuffer()
	}
	d.r.Reset(d.rw)
	d.desynced = false
}

func (d *SerialDevice) ReadRawPosition(ctx context.Context) (int, error) {
	reply, err := d.exchange(ctx, "R")
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("hardware serial: bad reading %q", reply)
	}
	return v, nil
}

func (d *SerialDevice) SetPosition(ctx context.Context, pos int) error {
	reply, err := d.exchange(ctx, "S"+strconv.Itoa(pos))
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("hardware serial: servo rejected %d: %q", pos, reply)
	}
	return nil
}

func (d *SerialDevice) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
