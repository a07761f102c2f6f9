package i2c

import (
	"context"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/snsctx"
)

var _ imu.I2CBus = &GobotBus{}

// GobotBus drives an I2C bus of a FriendlyELEC NanoPi board through gobot.
// One generic driver is started per device address on first use.
type GobotBus struct {
	mx      sync.Mutex
	adaptor *nanopi.Adaptor
	bus     int
	drivers map[byte]*i2c.GenericDriver
}

func NewNanoPiBus(bus int) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	return &GobotBus{
		adaptor: npi,
		bus:     bus,
		drivers: make(map[byte]*i2c.GenericDriver),
	}, nil
}

func (b *GobotBus) driver(address byte) (*i2c.GenericDriver, error) {
	if d, ok := b.drivers[address]; ok {
		return d, nil
	}
	d := i2c.NewGenericDriver(b.adaptor, fmt.Sprintf("dev-%#02x", address), int(address), func(c i2c.Config) {
		c.SetBus(b.bus)
	})
	err := d.Start()
	if err != nil {
		return nil, fmt.Errorf("device %#x start error: %w", address, err)
	}
	b.drivers[address] = d
	return d, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	err = d.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	snsctx.Dump(ctx, "i2c read", buffer)
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	snsctx.Dump(ctx, "i2c write", buffer)
	err = d.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Open binds the bus to one device address; the pointer write and the read of a
// WriteRead are separate transfers serialized by the caller's session.
func (b *GobotBus) Open(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	if address > 0x7F {
		return nil, fmt.Errorf("address %#x is not a 7-bit bus address", address)
	}
	return imu.Bind(b, byte(address)), nil
}

// Close halts every started driver and finalizes the adaptor.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	for addr, d := range b.drivers {
		_ = d.Halt()
		delete(b.drivers, addr)
	}
	return b.adaptor.I2cBusAdaptor.Finalize()
}
