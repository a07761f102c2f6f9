package orientation

import (
	"context"
	"fmt"

	"github.com/mklimuk/imu/orientation/register"
)

// ChipInfo is an identity and status snapshot. Its fields come from independent
// register reads and are not sampled atomically.
type ChipInfo struct {
	ChipID             byte                       `yaml:"chip_id"`
	AccelID            byte                       `yaml:"accelerometer_id"`
	MagID              byte                       `yaml:"magnetometer_id"`
	GyroID             byte                       `yaml:"gyroscope_id"`
	SoftwareRevision   uint16                     `yaml:"software_revision"`
	BootloaderRevision byte                       `yaml:"bootloader_revision"`
	Page               byte                       `yaml:"page"`
	Temperature        Temperature                `yaml:"temperature"`
	Calibration        register.CalibrationStatus `yaml:"calibration"`
	SelfTest           register.SelfTest          `yaml:"self_test"`
	SystemStatus       register.SystemStatus      `yaml:"system_status"`
	SystemError        register.SystemError       `yaml:"system_error"`
	ClockBusy          bool                       `yaml:"clock_busy"`
	Units              register.UnitSelection     `yaml:"units"`
	OperationMode      register.OperationMode     `yaml:"operation_mode"`
	PowerMode          register.PowerMode         `yaml:"power_mode"`
	TempSource         register.TempSource        `yaml:"temperature_source"`
	AxisMap            register.AxisMap           `yaml:"axis_map"`
}

func (d *BNO055) SelfTestResult(ctx context.Context) (register.SelfTest, error) {
	b, err := d.readRegister(ctx, register.SelfTestResult)
	if err != nil {
		return register.SelfTest{}, err
	}
	return register.DecodeSelfTest(b), nil
}

func (d *BNO055) SystemStatus(ctx context.Context) (register.SystemStatus, error) {
	b, err := d.readRegister(ctx, register.SystemStatusCode)
	if err != nil {
		return register.SystemStatusUnknown, err
	}
	return register.DecodeSystemStatus(b), nil
}

func (d *BNO055) SystemError(ctx context.Context) (register.SystemError, error) {
	b, err := d.readRegister(ctx, register.SystemErrorCode)
	if err != nil {
		return register.SystemErrorUnknown, err
	}
	return register.DecodeSystemError(b), nil
}

// Info reads the full ChipInfo snapshot.
func (d *BNO055) Info(ctx context.Context) (ChipInfo, error) {
	var info ChipInfo
	ids := []struct {
		reg register.Address
		dst *byte
	}{
		{register.ChipID, &info.ChipID},
		{register.AccelID, &info.AccelID},
		{register.MagID, &info.MagID},
		{register.GyroID, &info.GyroID},
		{register.BootloaderID, &info.BootloaderRevision},
		{register.PageID, &info.Page},
	}
	var err error
	for _, id := range ids {
		*id.dst, err = d.readRegister(ctx, id.reg)
		if err != nil {
			return info, fmt.Errorf("could not read identity: %w", err)
		}
	}
	if info.SoftwareRevision, err = d.SoftwareRevision(ctx); err != nil {
		return info, fmt.Errorf("could not read software revision: %w", err)
	}
	if info.Units, err = d.UnitSelection(ctx); err != nil {
		return info, fmt.Errorf("could not read unit selection: %w", err)
	}
	if info.Temperature, err = d.temperature(ctx, info.Units); err != nil {
		return info, err
	}
	if info.Calibration, err = d.CalibrationStatus(ctx); err != nil {
		return info, fmt.Errorf("could not read calibration status: %w", err)
	}
	if info.SelfTest, err = d.SelfTestResult(ctx); err != nil {
		return info, fmt.Errorf("could not read self test result: %w", err)
	}
	if info.SystemStatus, err = d.SystemStatus(ctx); err != nil {
		return info, fmt.Errorf("could not read system status: %w", err)
	}
	if info.SystemError, err = d.SystemError(ctx); err != nil {
		return info, fmt.Errorf("could not read system error: %w", err)
	}
	clk, err := d.readRegister(ctx, register.SystemClockStat)
	if err != nil {
		return info, fmt.Errorf("could not read clock status: %w", err)
	}
	info.ClockBusy = clk&0x01 != 0
	if info.OperationMode, err = d.OperationMode(ctx); err != nil {
		return info, fmt.Errorf("could not read operation mode: %w", err)
	}
	if info.PowerMode, err = d.PowerMode(ctx); err != nil {
		return info, fmt.Errorf("could not read power mode: %w", err)
	}
	if info.TempSource, err = d.TempSource(ctx); err != nil {
		return info, fmt.Errorf("could not read temperature source: %w", err)
	}
	if info.AxisMap, err = d.AxisMap(ctx); err != nil {
		return info, fmt.Errorf("could not read axis map: %w", err)
	}
	return info, nil
}
