package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/adapter"
	"github.com/mklimuk/imu/i2c"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
)

const (
	adapterSim     = "sim"
	adapterPeriph  = "periph"
	adapterNanoPi  = "nanopi"
	adapterMCP2221 = "mcp2221"
)

var adapterNames = []string{adapterSim, adapterPeriph, adapterNanoPi, adapterMCP2221}

// transports opens every bus through the adapter it was routed to. Transports are
// created on first use and shared by all devices on the same adapter.
type transports struct {
	mx      sync.Mutex
	speed   int
	routes  map[string]string
	openers map[string]imu.Opener
	closers []io.Closer
}

func newTransports(speed int) *transports {
	return &transports{
		speed:   speed,
		routes:  make(map[string]string),
		openers: make(map[string]imu.Opener),
	}
}

func (t *transports) route(bus, adapterName string) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	if prev, ok := t.routes[bus]; ok && prev != adapterName {
		return fmt.Errorf("bus %q is already routed to adapter %s", bus, prev)
	}
	t.routes[bus] = adapterName
	return nil
}

func (t *transports) Open(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	t.mx.Lock()
	name, ok := t.routes[bus]
	if !ok {
		t.mx.Unlock()
		return nil, fmt.Errorf("no adapter routed for bus %q", bus)
	}
	open, err := t.opener(name, bus)
	t.mx.Unlock()
	if err != nil {
		return nil, err
	}
	return open(ctx, bus, address)
}

// opener returns the transport for one adapter. Callers hold mx.
func (t *transports) opener(name, bus string) (imu.Opener, error) {
	key := name
	if name == adapterNanoPi || name == adapterMCP2221 {
		key = name + ":" + bus
	}
	if open, ok := t.openers[key]; ok {
		return open, nil
	}
	var open imu.Opener
	switch name {
	case adapterSim:
		open = simulator
	case adapterPeriph:
		host := i2c.NewHost()
		t.closers = append(t.closers, host)
		open = func(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
			b, err := host.Bus(bus)
			if err != nil {
				return nil, err
			}
			if t.speed > 0 {
				err = b.SetSpeed(physic.Frequency(t.speed) * physic.Hertz)
				if err != nil {
					return nil, fmt.Errorf("could not set bus speed: %w", err)
				}
			}
			return b.Open(ctx, bus, address)
		}
	case adapterNanoPi:
		n, err := busNumber(bus, 0)
		if err != nil {
			return nil, err
		}
		b, err := i2c.NewNanoPiBus(n)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, b)
		open = b.Open
	case adapterMCP2221:
		index, err := busNumber(strings.TrimPrefix(bus, "usb"), -1)
		if err != nil {
			return nil, err
		}
		bridge := adapter.NewMCP2221(adapter.HIDOpener(index))
		if t.speed > 0 {
			err = bridge.SetSpeed(context.Background(), t.speed)
			if err != nil {
				return nil, err
			}
		}
		open = bridge.Open
	default:
		return nil, fmt.Errorf("unknown adapter %q (available: %s)", name, strings.Join(adapterNames, ", "))
	}
	t.openers[key] = open
	return open, nil
}

func (t *transports) Close() error {
	t.mx.Lock()
	defer t.mx.Unlock()
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c.Close())
	}
	t.closers = nil
	clear(t.openers)
	return errors.Join(errs...)
}

// busNumber parses a numeric bus name; an empty name yields def.
func busNumber(bus string, def int) (int, error) {
	if bus == "" {
		return def, nil
	}
	n, err := strconv.Atoi(bus)
	if err != nil {
		return 0, fmt.Errorf("bus %q is not a bus number", bus)
	}
	return n, nil
}

// simulator opens an in-memory chip resting flat, heading north, in config mode.
func simulator(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	chip := orientation.NewMockChip()
	chip.SetVector(register.AccelData, 0, 0, 981)
	chip.SetVector(register.MagData, 320, 0, -640)
	chip.SetVector(register.GravityData, 0, 0, 981)
	chip.SetVector(register.QuaternionData, 1<<14, 0, 0, 0)
	chip.SetRegister(register.CalibrationStat, 0xFF)
	chip.SetRegister(register.SystemStatusCode, 0x05)
	slog.DebugContext(ctx, "simulated chip opened", "bus", bus, "address", address)
	return chip, nil
}
