// Package orientation drives the Bosch BNO055 9-axis absolute orientation sensor.
//
// Every exported method is a self-contained sequence of register transactions on the
// Conn given to NewBNO055. A BNO055 value does no locking of its own: composite
// operations (vectors, Info, SetAxisMap) are only consistent when the caller runs
// them one at a time, which is what session.Session does.
//
// Datasheet: https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bno055-ds000.pdf
package orientation

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/orientation/register"
)

type BNO055Opts struct {
	// ModeSwitchDelay is waited after every OPR_MODE write (datasheet: 7 ms from
	// config mode, 19 ms into config mode).
	ModeSwitchDelay time.Duration
	// ResetDelay is waited after a system reset before the chip answers again.
	ResetDelay time.Duration
	// SelfTestDelay is waited between the self test trigger and reading ST_RESULT.
	SelfTestDelay time.Duration
}

type BNO055Opt func(*BNO055Opts)

func WithModeSwitchDelay(delay time.Duration) BNO055Opt {
	return func(o *BNO055Opts) {
		o.ModeSwitchDelay = delay
	}
}

func WithResetDelay(delay time.Duration) BNO055Opt {
	return func(o *BNO055Opts) {
		o.ResetDelay = delay
	}
}

func WithSelfTestDelay(delay time.Duration) BNO055Opt {
	return func(o *BNO055Opts) {
		o.SelfTestDelay = delay
	}
}

// WithoutDelays disables every chip timing wait, for simulated buses.
func WithoutDelays() BNO055Opt {
	return func(o *BNO055Opts) {
		o.ModeSwitchDelay = 0
		o.ResetDelay = 0
		o.SelfTestDelay = 0
	}
}

// BNO055 represents one Bosch BNO055 chip reachable through conn.
// Typical usage:
//
//	d := NewBNO055(imu.Bind(bus, register.DefaultAddress))
//	acc, err := d.Acceleration(ctx)
type BNO055 struct {
	conn   imu.Conn
	config BNO055Opts
}

func NewBNO055(conn imu.Conn, opts ...BNO055Opt) *BNO055 {
	config := BNO055Opts{
		ModeSwitchDelay: 20 * time.Millisecond,
		ResetDelay:      650 * time.Millisecond,
		SelfTestDelay:   400 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &BNO055{conn: conn, config: config}
}

// Conn returns the underlying bus handle.
func (d *BNO055) Conn() imu.Conn {
	return d.conn
}

func (d *BNO055) readRegisters(ctx context.Context, reg register.Address, n int) ([]byte, error) {
	buf := make([]byte, n)
	err := d.conn.WriteRead(ctx, []byte{byte(reg)}, buf)
	if err != nil {
		return nil, &BusError{Op: "read", Register: reg, Err: err}
	}
	return buf, nil
}

func (d *BNO055) readRegister(ctx context.Context, reg register.Address) (byte, error) {
	buf, err := d.readRegisters(ctx, reg, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// readSigned reads one LSB/MSB pair in a single transaction.
func (d *BNO055) readSigned(ctx context.Context, reg register.Address) (int16, error) {
	buf, err := d.readRegisters(ctx, reg, 2)
	if err != nil {
		return 0, err
	}
	return register.DecodeSigned(buf[0], buf[1]), nil
}

func (d *BNO055) writeRegister(ctx context.Context, reg register.Address, data ...byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, byte(reg))
	buf = append(buf, data...)
	err := d.conn.Write(ctx, buf)
	if err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	return nil
}

func (d *BNO055) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChipID reads the chip identity register.
func (d *BNO055) ChipID(ctx context.Context) (byte, error) {
	return d.readRegister(ctx, register.ChipID)
}

// VerifyIdentity fails with *IdentityMismatchError unless ChipID holds register.ChipIdentity.
func (d *BNO055) VerifyIdentity(ctx context.Context) error {
	id, err := d.ChipID(ctx)
	if err != nil {
		return err
	}
	if id != register.ChipIdentity {
		return &IdentityMismatchError{Expected: register.ChipIdentity, Got: id}
	}
	return nil
}

// SoftwareRevision combines SW_REV_ID LSB and MSB, fetched as two separate reads.
func (d *BNO055) SoftwareRevision(ctx context.Context) (uint16, error) {
	lsb, err := d.readRegister(ctx, register.SoftwareLSB)
	if err != nil {
		return 0, err
	}
	msb, err := d.readRegister(ctx, register.SoftwareMSB)
	if err != nil {
		return 0, err
	}
	return register.DecodeUnsigned([]byte{lsb, msb}), nil
}

func (d *BNO055) OperationMode(ctx context.Context) (register.OperationMode, error) {
	b, err := d.readRegister(ctx, register.OperationModeCtl)
	if err != nil {
		return register.OperationModeUnknown, err
	}
	return register.DecodeOperationMode(b), nil
}

// SetOperationMode writes the whole OPR_MODE byte and waits for the mode switch.
func (d *BNO055) SetOperationMode(ctx context.Context, mode register.OperationMode) error {
	b, err := mode.Encode()
	if err != nil {
		return err
	}
	err = d.writeRegister(ctx, register.OperationModeCtl, b)
	if err != nil {
		return err
	}
	return d.wait(ctx, d.config.ModeSwitchDelay)
}

func (d *BNO055) PowerMode(ctx context.Context) (register.PowerMode, error) {
	b, err := d.readRegister(ctx, register.PowerModeCtl)
	if err != nil {
		return register.PowerModeUnknown, err
	}
	return register.DecodePowerMode(b), nil
}

func (d *BNO055) SetPowerMode(ctx context.Context, mode register.PowerMode) error {
	b, err := mode.Encode()
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, register.PowerModeCtl, b)
}

func (d *BNO055) TempSource(ctx context.Context) (register.TempSource, error) {
	b, err := d.readRegister(ctx, register.TemperatureSource)
	if err != nil {
		return register.TempSourceUnknown, err
	}
	return register.DecodeTempSource(b), nil
}

func (d *BNO055) SetTempSource(ctx context.Context, source register.TempSource) error {
	b, err := source.Encode()
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, register.TemperatureSource, b)
}

// SetClockSource selects the internal oscillator or an external crystal.
func (d *BNO055) SetClockSource(ctx context.Context, source register.ClockSource) error {
	b, err := source.Trigger()
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, register.SystemTrigger, b)
}

// Reset issues a system reset and waits until the chip is expected to answer again.
// All registers return to their power-on values.
func (d *BNO055) Reset(ctx context.Context) error {
	err := d.writeRegister(ctx, register.SystemTrigger, register.TriggerResetSystem)
	if err != nil {
		return fmt.Errorf("could not trigger system reset: %w", err)
	}
	return d.wait(ctx, d.config.ResetDelay)
}

func (d *BNO055) UnitSelection(ctx context.Context) (register.UnitSelection, error) {
	b, err := d.readRegister(ctx, register.UnitSelect)
	if err != nil {
		return register.UnitSelection{}, err
	}
	return register.DecodeUnitSelection(b), nil
}

// setUnit rewrites UNIT_SEL with one field changed; the other four keep the values
// read back from the chip.
func (d *BNO055) setUnit(ctx context.Context, field string, value uint8) error {
	if _, err := register.MergeUnit(0, field, value); err != nil {
		return err
	}
	current, err := d.readRegister(ctx, register.UnitSelect)
	if err != nil {
		return err
	}
	b, err := register.MergeUnit(current, field, value)
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, register.UnitSelect, b)
}

func (d *BNO055) SetAccelUnit(ctx context.Context, u register.AccelUnit) error {
	return d.setUnit(ctx, register.FieldAccel, uint8(u))
}

func (d *BNO055) SetAngularRateUnit(ctx context.Context, u register.AngularRateUnit) error {
	return d.setUnit(ctx, register.FieldAngularRate, uint8(u))
}

func (d *BNO055) SetEulerUnit(ctx context.Context, u register.EulerUnit) error {
	return d.setUnit(ctx, register.FieldEuler, uint8(u))
}

func (d *BNO055) SetTemperatureUnit(ctx context.Context, u register.TemperatureUnit) error {
	return d.setUnit(ctx, register.FieldTemperature, uint8(u))
}

func (d *BNO055) SetOrientationConvention(ctx context.Context, o register.OrientationConvention) error {
	return d.setUnit(ctx, register.FieldOrientation, uint8(o))
}

func (d *BNO055) AxisMap(ctx context.Context) (register.AxisMap, error) {
	config, err := d.readRegister(ctx, register.AxisMapConfig)
	if err != nil {
		return register.AxisMap{}, err
	}
	sign, err := d.readRegister(ctx, register.AxisMapSign)
	if err != nil {
		return register.AxisMap{}, err
	}
	return register.DecodeAxisMap(config, sign), nil
}

// SetAxisMap writes AXIS_MAP_CONFIG then AXIS_MAP_SIGN. A failing sign write leaves
// the new config in place.
func (d *BNO055) SetAxisMap(ctx context.Context, m register.AxisMap) error {
	config, sign, err := m.Encode()
	if err != nil {
		return err
	}
	err = d.writeRegister(ctx, register.AxisMapConfig, config)
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, register.AxisMapSign, sign)
}
