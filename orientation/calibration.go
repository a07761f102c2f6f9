package orientation

import (
	"context"
	"fmt"

	"github.com/mklimuk/imu/orientation/register"
)

// The offset and radius registers are only writable in config mode; the chip
// silently ignores writes in fusion modes.

func (d *BNO055) offset(ctx context.Context, base register.Address) ([3]int16, error) {
	raw, err := d.readRawVector(ctx, base, 3)
	if err != nil {
		return [3]int16{}, err
	}
	return [3]int16{raw[0], raw[1], raw[2]}, nil
}

// setOffset writes x, y and z in that order, one transaction per axis. Axes written
// before a failing one are not restored.
func (d *BNO055) setOffset(ctx context.Context, base register.Address, v [3]int16) error {
	for axis, value := range v {
		lsb, msb := register.EncodeSigned(value)
		err := d.writeRegister(ctx, base.Axis(axis), lsb, msb)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *BNO055) AccelOffset(ctx context.Context) ([3]int16, error) {
	return d.offset(ctx, register.AccelOffset)
}

func (d *BNO055) SetAccelOffset(ctx context.Context, v [3]int16) error {
	return d.setOffset(ctx, register.AccelOffset, v)
}

func (d *BNO055) MagOffset(ctx context.Context) ([3]int16, error) {
	return d.offset(ctx, register.MagOffset)
}

func (d *BNO055) SetMagOffset(ctx context.Context, v [3]int16) error {
	return d.setOffset(ctx, register.MagOffset, v)
}

func (d *BNO055) GyroOffset(ctx context.Context) ([3]int16, error) {
	return d.offset(ctx, register.GyroOffset)
}

func (d *BNO055) SetGyroOffset(ctx context.Context, v [3]int16) error {
	return d.setOffset(ctx, register.GyroOffset, v)
}

func (d *BNO055) AccelRadius(ctx context.Context) (int16, error) {
	return d.readSigned(ctx, register.AccelRadius)
}

func (d *BNO055) SetAccelRadius(ctx context.Context, r int16) error {
	lsb, msb := register.EncodeSigned(r)
	return d.writeRegister(ctx, register.AccelRadius, lsb, msb)
}

func (d *BNO055) MagRadius(ctx context.Context) (int16, error) {
	return d.readSigned(ctx, register.MagRadius)
}

func (d *BNO055) SetMagRadius(ctx context.Context, r int16) error {
	lsb, msb := register.EncodeSigned(r)
	return d.writeRegister(ctx, register.MagRadius, lsb, msb)
}

// CalibrationProfile reads the whole offset/radius block in one transaction.
func (d *BNO055) CalibrationProfile(ctx context.Context) (register.Profile, error) {
	raw, err := d.readRegisters(ctx, register.AccelOffset, register.ProfileSize)
	if err != nil {
		return register.Profile{}, fmt.Errorf("could not read calibration profile: %w", err)
	}
	return register.DecodeProfile(raw)
}

// SetCalibrationProfile writes the whole offset/radius block in one transaction.
func (d *BNO055) SetCalibrationProfile(ctx context.Context, p register.Profile) error {
	err := d.writeRegister(ctx, register.AccelOffset, p.Encode()...)
	if err != nil {
		return fmt.Errorf("could not write calibration profile: %w", err)
	}
	return nil
}

// RunSelfTest triggers the built-in self test and returns its result. The chip has to
// be in config mode.
func (d *BNO055) RunSelfTest(ctx context.Context) (register.SelfTest, error) {
	err := d.writeRegister(ctx, register.SystemTrigger, register.TriggerSelfTest)
	if err != nil {
		return register.SelfTest{}, fmt.Errorf("could not trigger self test: %w", err)
	}
	if err = d.wait(ctx, d.config.SelfTestDelay); err != nil {
		return register.SelfTest{}, err
	}
	return d.SelfTestResult(ctx)
}
