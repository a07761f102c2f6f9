// Package adapter drives USB-to-I2C bridges so a BNO055 can be reached from a
// workstation without a native I2C controller.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// MCP2221 HID commands.
const (
	cmdStatusSetParameters byte = 0x10
	cmdGetI2CData          byte = 0x40
	cmdWriteI2CData        byte = 0x90
	cmdReadI2CData         byte = 0x91
)

const (
	cancelTransfer byte = 0x10
	setSpeed       byte = 0x20
	speedAccepted  byte = 0x20
	readError      byte = 0x41
	engineBusy     byte = 0x01
	invalidLength  byte = 127
	clockFrequency      = 12_000_000
)

var ErrCommandFailed = errors.New("command failed")

var _ imu.I2CBus = &MCP2221{}

// Device is one opened HID report pipe.
type Device interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// DeviceOpener opens the HID device for one command exchange.
type DeviceOpener func() (Device, error)

// HIDOpener opens the index-th MCP2221 attached to the host. A negative index
// requires exactly one attached bridge.
func HIDOpener(index int) DeviceOpener {
	return func() (Device, error) {
		devs := hid.Enumerate(VendorID, ProductID)
		if len(devs) == 0 {
			return nil, fmt.Errorf("MCP2221 device not found")
		}
		if index < 0 {
			if len(devs) > 1 {
				return nil, fmt.Errorf("ambiguous device identification: %d bridges attached", len(devs))
			}
			index = 0
		}
		if index >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", index)
		}
		dev, err := devs[index].Open()
		if err != nil {
			return nil, fmt.Errorf("error opening device: %w", err)
		}
		return dev, nil
	}
}

type MCP2221Opts struct {
	ResponseWait time.Duration
}

type MCP2221Opt func(*MCP2221Opts)

// WithResponseWait sets the pause between a command report and reading its response.
func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(o *MCP2221Opts) {
		o.ResponseWait = wait
	}
}

type MCP2221 struct {
	mx       sync.Mutex
	open     DeviceOpener
	request  []byte
	response []byte
	config   MCP2221Opts
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"speed_divider"`
	I2CTimeout             int    `yaml:"timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent"`
	ReadPending            int    `yaml:"read_pending"`
}

func NewMCP2221(open DeviceOpener, opts ...MCP2221Opt) *MCP2221 {
	config := MCP2221Opts{ResponseWait: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(&config)
	}
	return &MCP2221{
		open:     open,
		request:  make([]byte, reportSize),
		response: make([]byte, reportSize),
		config:   config,
	}
}

// Open binds the bridge to one device address; the bus name is ignored as the
// bridge drives a single bus.
func (d *MCP2221) Open(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	if address > 0x7F {
		return nil, fmt.Errorf("address %#x is not a 7-bit bus address", address)
	}
	return imu.Bind(d, byte(address)), nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(buffer) > reportSize-4 {
		return fmt.Errorf("write of %d bytes does not fit one report", len(buffer))
	}
	d.resetBuffers()
	d.request[0] = cmdWriteI2CData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == engineBusy {
		slog.DebugContext(ctx, "adapter busy", "address", address)
		return imu.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(buffer) > reportSize-4 {
		return fmt.Errorf("read of %d bytes does not fit one report", len(buffer))
	}
	d.resetBuffers()
	d.request[0] = cmdReadI2CData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == engineBusy {
		return imu.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == readError {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if d.response[3] == invalidLength || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

// SetSpeed sets the I2C clock. The BNO055 supports up to 400 kHz.
func (d *MCP2221) SetSpeed(ctx context.Context, hz int) error {
	if hz < 50_000 || hz > 400_000 {
		return fmt.Errorf("unsupported I2C speed %d Hz", hz)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	d.request[3] = setSpeed
	d.request[4] = byte(clockFrequency/hz - 3)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	if d.response[3] != speedAccepted {
		return fmt.Errorf("%w: speed change rejected while a transfer is in progress", ErrCommandFailed)
	}
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// Release cancels a stuck transfer and frees the bus.
func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.WarnContext(ctx, "could not close adapter", "error", err)
		}
	}()
	snsctx.Dump(ctx, "sending message to adapter", d.request)
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	if err = wait(ctx, d.config.ResponseWait); err != nil {
		return err
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	snsctx.Dump(ctx, "read message from adapter", d.response)
	if d.response[0] != d.request[0] {
		return fmt.Errorf("%w: response to command %#02x echoes %#02x", ErrCommandFailed, d.request[0], d.response[0])
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
