package imu

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a raw bus engine shared by every device wired to it.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Conn is a bus session bound to a single device address. WriteRead writes w and
// reads len(r) bytes of response as one request/response exchange.
type Conn interface {
	Write(ctx context.Context, buffer []byte) error
	WriteRead(ctx context.Context, w []byte, r []byte) error
}

// Opener opens a Conn for the device at address on the named bus.
type Opener func(ctx context.Context, bus string, address uint16) (Conn, error)

type addrConn struct {
	bus  I2CBus
	addr byte
}

// Bind returns a Conn talking to address through an addressable bus. The read half
// of WriteRead is a separate bus transfer, so the caller owns serialization.
func Bind(bus I2CBus, address byte) Conn {
	return &addrConn{bus: bus, addr: address}
}

func (c *addrConn) Write(ctx context.Context, buffer []byte) error {
	return c.bus.WriteToAddr(ctx, c.addr, buffer)
}

func (c *addrConn) WriteRead(ctx context.Context, w []byte, r []byte) error {
	err := c.bus.WriteToAddr(ctx, c.addr, w)
	if err != nil {
		return fmt.Errorf("could not set register pointer: %w", err)
	}
	err = c.bus.ReadFromAddr(ctx, c.addr, r)
	if err != nil {
		return fmt.Errorf("could not read register content: %w", err)
	}
	return nil
}
