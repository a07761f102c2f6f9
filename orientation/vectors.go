package orientation

import (
	"context"
	"fmt"

	"github.com/mklimuk/imu/orientation/register"
)

// Vector is one 3-axis reading scaled to the unit active when it was read.
// For Euler angles X is heading, Y is roll and Z is pitch.
type Vector struct {
	X           float64  `yaml:"x"`
	Y           float64  `yaml:"y"`
	Z           float64  `yaml:"z"`
	Raw         [3]int16 `yaml:"raw,flow"`
	Unit        string   `yaml:"unit"`
	Calibration uint8    `yaml:"calibration"`
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f) %s [cal %d]", v.X, v.Y, v.Z, v.Unit, v.Calibration)
}

// Quaternion is the fused orientation, scaled by 2^14.
type Quaternion struct {
	W   float64  `yaml:"w"`
	X   float64  `yaml:"x"`
	Y   float64  `yaml:"y"`
	Z   float64  `yaml:"z"`
	Raw [4]int16 `yaml:"raw,flow"`
}

type Temperature struct {
	Value float64 `yaml:"value"`
	Raw   int8    `yaml:"raw"`
	Unit  string  `yaml:"unit"`
}

// Position gathers every vector output, the quaternion and the temperature of one
// read cycle.
type Position struct {
	Acceleration       Vector      `yaml:"acceleration"`
	Magnetometer       Vector      `yaml:"magnetometer"`
	Gyroscope          Vector      `yaml:"gyroscope"`
	Euler              Vector      `yaml:"euler"`
	LinearAcceleration Vector      `yaml:"linear_acceleration"`
	Gravity            Vector      `yaml:"gravity"`
	Quaternion         Quaternion  `yaml:"quaternion"`
	Temperature        Temperature `yaml:"temperature"`
}

type quantity struct {
	name        string
	data        register.Address
	scale       func(register.UnitSelection) (divisor float64, unit string)
	calibration func(register.CalibrationStatus) uint8
}

func accelScale(u register.UnitSelection) (float64, string) {
	return u.Accel.Divisor(), u.Accel.Symbol()
}

func systemCalibration(c register.CalibrationStatus) uint8 {
	return c.System
}

var (
	accelQuantity = quantity{
		name:        "acceleration",
		data:        register.AccelData,
		scale:       accelScale,
		calibration: func(c register.CalibrationStatus) uint8 { return c.Accelerometer },
	}
	magQuantity = quantity{
		name: "magnetometer",
		data: register.MagData,
		scale: func(register.UnitSelection) (float64, string) {
			return register.MagDivisor, "uT"
		},
		calibration: func(c register.CalibrationStatus) uint8 { return c.Magnetometer },
	}
	gyroQuantity = quantity{
		name: "gyroscope",
		data: register.GyroData,
		scale: func(u register.UnitSelection) (float64, string) {
			return u.AngularRate.Divisor(), u.AngularRate.Symbol()
		},
		calibration: func(c register.CalibrationStatus) uint8 { return c.Gyroscope },
	}
	eulerQuantity = quantity{
		name: "euler",
		data: register.EulerData,
		scale: func(u register.UnitSelection) (float64, string) {
			return u.Euler.Divisor(), u.Euler.Symbol()
		},
		calibration: systemCalibration,
	}
	linearAccelQuantity = quantity{
		name:        "linear_acceleration",
		data:        register.LinearAccelData,
		scale:       accelScale,
		calibration: systemCalibration,
	}
	gravityQuantity = quantity{
		name:        "gravity",
		data:        register.GravityData,
		scale:       accelScale,
		calibration: systemCalibration,
	}
)

func (d *BNO055) CalibrationStatus(ctx context.Context) (register.CalibrationStatus, error) {
	b, err := d.readRegister(ctx, register.CalibrationStat)
	if err != nil {
		return register.CalibrationStatus{}, err
	}
	return register.DecodeCalibrationStatus(b), nil
}

func (d *BNO055) readRawVector(ctx context.Context, base register.Address, n int) ([]int16, error) {
	raw := make([]int16, n)
	for axis := range raw {
		v, err := d.readSigned(ctx, base.Axis(axis))
		if err != nil {
			return nil, err
		}
		raw[axis] = v
	}
	return raw, nil
}

func newVector(q quantity, raw []int16, units register.UnitSelection, calib register.CalibrationStatus) Vector {
	divisor, unit := q.scale(units)
	return Vector{
		X:           register.Scale(raw[0], divisor),
		Y:           register.Scale(raw[1], divisor),
		Z:           register.Scale(raw[2], divisor),
		Raw:         [3]int16{raw[0], raw[1], raw[2]},
		Unit:        unit,
		Calibration: q.calibration(calib),
	}
}

func (d *BNO055) scaledVector(ctx context.Context, q quantity, units register.UnitSelection, calib register.CalibrationStatus) (Vector, error) {
	raw, err := d.readRawVector(ctx, q.data, 3)
	if err != nil {
		return Vector{}, fmt.Errorf("could not read %s: %w", q.name, err)
	}
	return newVector(q, raw, units, calib), nil
}

// vector reads the unit selection, the three axes and the calibration status.
// A unit change issued between those reads by another caller is not detected.
func (d *BNO055) vector(ctx context.Context, q quantity) (Vector, error) {
	units, err := d.UnitSelection(ctx)
	if err != nil {
		return Vector{}, fmt.Errorf("could not read unit selection: %w", err)
	}
	raw, err := d.readRawVector(ctx, q.data, 3)
	if err != nil {
		return Vector{}, fmt.Errorf("could not read %s: %w", q.name, err)
	}
	calib, err := d.CalibrationStatus(ctx)
	if err != nil {
		return Vector{}, fmt.Errorf("could not read calibration status: %w", err)
	}
	return newVector(q, raw, units, calib), nil
}

func (d *BNO055) Acceleration(ctx context.Context) (Vector, error) {
	return d.vector(ctx, accelQuantity)
}

func (d *BNO055) Magnetometer(ctx context.Context) (Vector, error) {
	return d.vector(ctx, magQuantity)
}

func (d *BNO055) Gyroscope(ctx context.Context) (Vector, error) {
	return d.vector(ctx, gyroQuantity)
}

// Euler returns heading, roll and pitch.
func (d *BNO055) Euler(ctx context.Context) (Vector, error) {
	return d.vector(ctx, eulerQuantity)
}

func (d *BNO055) LinearAcceleration(ctx context.Context) (Vector, error) {
	return d.vector(ctx, linearAccelQuantity)
}

func (d *BNO055) Gravity(ctx context.Context) (Vector, error) {
	return d.vector(ctx, gravityQuantity)
}

func (d *BNO055) Quaternion(ctx context.Context) (Quaternion, error) {
	raw, err := d.readRawVector(ctx, register.QuaternionData, 4)
	if err != nil {
		return Quaternion{}, fmt.Errorf("could not read quaternion: %w", err)
	}
	return Quaternion{
		W:   register.Scale(raw[0], register.QuaternionDivisor),
		X:   register.Scale(raw[1], register.QuaternionDivisor),
		Y:   register.Scale(raw[2], register.QuaternionDivisor),
		Z:   register.Scale(raw[3], register.QuaternionDivisor),
		Raw: [4]int16{raw[0], raw[1], raw[2], raw[3]},
	}, nil
}

func (d *BNO055) Temperature(ctx context.Context) (Temperature, error) {
	units, err := d.UnitSelection(ctx)
	if err != nil {
		return Temperature{}, fmt.Errorf("could not read unit selection: %w", err)
	}
	return d.temperature(ctx, units)
}

func (d *BNO055) temperature(ctx context.Context, units register.UnitSelection) (Temperature, error) {
	b, err := d.readRegister(ctx, register.Temperature)
	if err != nil {
		return Temperature{}, fmt.Errorf("could not read temperature: %w", err)
	}
	raw := register.DecodeSigned8(b)
	return Temperature{
		Value: register.Scale(int16(raw), units.Temperature.Divisor()),
		Raw:   raw,
		Unit:  units.Temperature.Symbol(),
	}, nil
}

// Position reads all six vectors, the quaternion and the temperature. Unit selection and calibration
// status are read once and shared by every vector.
func (d *BNO055) Position(ctx context.Context) (Position, error) {
	var p Position
	units, err := d.UnitSelection(ctx)
	if err != nil {
		return p, fmt.Errorf("could not read unit selection: %w", err)
	}
	calib, err := d.CalibrationStatus(ctx)
	if err != nil {
		return p, fmt.Errorf("could not read calibration status: %w", err)
	}
	targets := []struct {
		q   quantity
		dst *Vector
	}{
		{accelQuantity, &p.Acceleration},
		{magQuantity, &p.Magnetometer},
		{gyroQuantity, &p.Gyroscope},
		{eulerQuantity, &p.Euler},
		{linearAccelQuantity, &p.LinearAcceleration},
		{gravityQuantity, &p.Gravity},
	}
	for _, t := range targets {
		*t.dst, err = d.scaledVector(ctx, t.q, units, calib)
		if err != nil {
			return p, err
		}
	}
	p.Quaternion, err = d.Quaternion(ctx)
	if err != nil {
		return p, err
	}
	p.Temperature, err = d.temperature(ctx, units)
	if err != nil {
		return p, err
	}
	return p, nil
}
