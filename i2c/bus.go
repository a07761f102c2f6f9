// Package i2c adapts native I2C controllers to the imu bus contract.
package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/snsctx"
)

var _ imu.I2CBus = &GenericBus{}

// GenericBus is a periph.io bus (for example /dev/i2c-1 on Linux).
type GenericBus struct {
	mx  sync.Mutex
	bus i2c.BusCloser
}

var initHost = sync.OnceValue(func() error {
	state, err := host.Init()
	if err != nil {
		return fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	return nil
})

func NewGenericBus(dev string) (*GenericBus, error) {
	err := initHost()
	if err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewBus(bus), nil
}

// NewBus wraps an already opened periph bus.
func NewBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{bus: bus}
}

// SetSpeed changes the bus clock; the BNO055 accepts up to 400 kHz.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) tx(ctx context.Context, address uint16, w, r []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	snsctx.Dump(ctx, "i2c write", w)
	err := b.bus.Tx(address, w, r)
	if err != nil {
		return err
	}
	if len(r) > 0 {
		snsctx.Dump(ctx, "i2c read", r)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.tx(ctx, uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.tx(ctx, uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

// Open returns a Conn whose WriteRead is one combined transaction (repeated start),
// so the register pointer and the read cannot be split by another bus user.
func (b *GenericBus) Open(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	if address > 0x7F {
		return nil, fmt.Errorf("address %#x is not a 7-bit bus address", address)
	}
	return &devConn{bus: b, addr: address}, nil
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}

type devConn struct {
	bus  *GenericBus
	addr uint16
}

func (c *devConn) Write(ctx context.Context, buffer []byte) error {
	err := c.bus.tx(ctx, c.addr, buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c device %#x: %w", c.addr, err)
	}
	return nil
}

func (c *devConn) WriteRead(ctx context.Context, w []byte, r []byte) error {
	err := c.bus.tx(ctx, c.addr, w, r)
	if err != nil {
		return fmt.Errorf("could not read from i2c device %#x: %w", c.addr, err)
	}
	return nil
}

// Host opens periph buses by name on first use and shares them between devices.
// Its Open method is an imu.Opener.
type Host struct {
	mx    sync.Mutex
	buses map[string]*GenericBus
	open  func(name string) (*GenericBus, error)
}

func NewHost() *Host {
	return &Host{
		buses: make(map[string]*GenericBus),
		open:  NewGenericBus,
	}
}

func (h *Host) Bus(name string) (*GenericBus, error) {
	h.mx.Lock()
	defer h.mx.Unlock()
	if b, ok := h.buses[name]; ok {
		return b, nil
	}
	b, err := h.open(name)
	if err != nil {
		return nil, err
	}
	h.buses[name] = b
	return b, nil
}

func (h *Host) Open(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	b, err := h.Bus(bus)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, bus, address)
}

func (h *Host) Close() error {
	h.mx.Lock()
	defer h.mx.Unlock()
	var first error
	for name, b := range h.buses {
		if err := b.Close(); err != nil && first == nil {
			first = fmt.Errorf("could not close bus %s: %w", name, err)
		}
		delete(h.buses, name)
	}
	return first
}
