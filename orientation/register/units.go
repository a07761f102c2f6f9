package register

import "fmt"

// UNIT_SEL field names. The five 1-bit fields are interleaved with reserved bits in
// one register, so a single unit can only be changed by rewriting the whole byte.
const (
	FieldOrientation = "orientation"
	FieldTemperature = "temperature"
	FieldEuler       = "euler"
	FieldAngularRate = "angular_rate"
	FieldAccel       = "acceleration"
)

var UnitLayout = Layout{
	{Name: FieldOrientation, Offset: 7, Width: 1},
	{Name: FieldTemperature, Offset: 4, Width: 1},
	{Name: FieldEuler, Offset: 2, Width: 1},
	{Name: FieldAngularRate, Offset: 1, Width: 1},
	{Name: FieldAccel, Offset: 0, Width: 1},
}

// MagDivisor scales magnetometer readings to microtesla; it has no unit choice.
const MagDivisor = 16.0

// QuaternionDivisor scales quaternion components to unit quaternion values.
const QuaternionDivisor = 1 << 14

type AccelUnit uint8

const (
	MetersPerSecondSquared AccelUnit = iota
	MilliG
)

var accelUnitNames = []string{
	MetersPerSecondSquared: "meters_per_second_squared",
	MilliG:                 "milli_g",
}

func (u AccelUnit) String() string { return name(accelUnitNames, uint8(u)) }

func (u AccelUnit) Symbol() string {
	if u == MilliG {
		return "mg"
	}
	return "m/s^2"
}

// Divisor is the LSB count per unit: 100 LSB = 1 m/s^2, 1 LSB = 1 mg.
func (u AccelUnit) Divisor() float64 {
	if u == MilliG {
		return 1.0
	}
	return 100.0
}

func ParseAccelUnit(n string) (AccelUnit, error) {
	code, ok := lookup(accelUnitNames, n)
	if !ok {
		return 0, fmt.Errorf("%w: acceleration unit %q", ErrInvalidArgument, n)
	}
	return AccelUnit(code), nil
}

type AngularRateUnit uint8

const (
	DegreesPerSecond AngularRateUnit = iota
	RadiansPerSecond
)

var angularRateUnitNames = []string{
	DegreesPerSecond: "degrees_per_second",
	RadiansPerSecond: "radians_per_second",
}

func (u AngularRateUnit) String() string { return name(angularRateUnitNames, uint8(u)) }

func (u AngularRateUnit) Symbol() string {
	if u == RadiansPerSecond {
		return "rad/s"
	}
	return "deg/s"
}

// Divisor: 16 LSB = 1 deg/s, 900 LSB = 1 rad/s.
func (u AngularRateUnit) Divisor() float64 {
	if u == RadiansPerSecond {
		return 900.0
	}
	return 16.0
}

func ParseAngularRateUnit(n string) (AngularRateUnit, error) {
	code, ok := lookup(angularRateUnitNames, n)
	if !ok {
		return 0, fmt.Errorf("%w: angular rate unit %q", ErrInvalidArgument, n)
	}
	return AngularRateUnit(code), nil
}

// EulerUnit is the unit of heading, roll and pitch.
type EulerUnit uint8

const (
	Degrees EulerUnit = iota
	Radians
)

var eulerUnitNames = []string{
	Degrees: "degrees",
	Radians: "radians",
}

func (u EulerUnit) String() string { return name(eulerUnitNames, uint8(u)) }

func (u EulerUnit) Symbol() string {
	if u == Radians {
		return "rad"
	}
	return "deg"
}

// Divisor: 16 LSB = 1 degree, 900 LSB = 1 radian.
func (u EulerUnit) Divisor() float64 {
	if u == Radians {
		return 900.0
	}
	return 16.0
}

func ParseEulerUnit(n string) (EulerUnit, error) {
	code, ok := lookup(eulerUnitNames, n)
	if !ok {
		return 0, fmt.Errorf("%w: heading unit %q", ErrInvalidArgument, n)
	}
	return EulerUnit(code), nil
}

type TemperatureUnit uint8

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
)

var temperatureUnitNames = []string{
	Celsius:    "celsius",
	Fahrenheit: "fahrenheit",
}

func (u TemperatureUnit) String() string { return name(temperatureUnitNames, uint8(u)) }

func (u TemperatureUnit) Symbol() string {
	if u == Fahrenheit {
		return "F"
	}
	return "C"
}

// Divisor: 1 LSB = 1 C, 2 LSB = 1 F.
func (u TemperatureUnit) Divisor() float64 {
	if u == Fahrenheit {
		return 2.0
	}
	return 1.0
}

func ParseTemperatureUnit(n string) (TemperatureUnit, error) {
	code, ok := lookup(temperatureUnitNames, n)
	if !ok {
		return 0, fmt.Errorf("%w: temperature unit %q", ErrInvalidArgument, n)
	}
	return TemperatureUnit(code), nil
}

// OrientationConvention selects the pitch sign and range convention.
type OrientationConvention uint8

const (
	Windows OrientationConvention = iota
	Android
)

var orientationNames = []string{
	Windows: "windows",
	Android: "android",
}

func (o OrientationConvention) String() string { return name(orientationNames, uint8(o)) }

func ParseOrientationConvention(n string) (OrientationConvention, error) {
	code, ok := lookup(orientationNames, n)
	if !ok {
		return 0, fmt.Errorf("%w: orientation convention %q", ErrInvalidArgument, n)
	}
	return OrientationConvention(code), nil
}

// UnitSelection is the decoded UNIT_SEL register.
type UnitSelection struct {
	Orientation OrientationConvention `yaml:"orientation"`
	Temperature TemperatureUnit       `yaml:"temperature"`
	Euler       EulerUnit             `yaml:"euler"`
	AngularRate AngularRateUnit       `yaml:"angular_rate"`
	Accel       AccelUnit             `yaml:"acceleration"`
}

func DecodeUnitSelection(b byte) UnitSelection {
	f := UnitLayout.Decode(b)
	return UnitSelection{
		Orientation: OrientationConvention(f[FieldOrientation]),
		Temperature: TemperatureUnit(f[FieldTemperature]),
		Euler:       EulerUnit(f[FieldEuler]),
		AngularRate: AngularRateUnit(f[FieldAngularRate]),
		Accel:       AccelUnit(f[FieldAccel]),
	}
}

// Encode writes all five fields over current, keeping its reserved bits.
func (u UnitSelection) Encode(current byte) (byte, error) {
	return UnitLayout.Encode(current, map[string]uint8{
		FieldOrientation: uint8(u.Orientation),
		FieldTemperature: uint8(u.Temperature),
		FieldEuler:       uint8(u.Euler),
		FieldAngularRate: uint8(u.AngularRate),
		FieldAccel:       uint8(u.Accel),
	})
}

// MergeUnit replaces one UNIT_SEL field of current and preserves the other bits.
func MergeUnit(current byte, field string, value uint8) (byte, error) {
	return UnitLayout.Encode(current, map[string]uint8{field: value})
}

func name(table []string, code uint8) string {
	if int(code) < len(table) {
		return table[code]
	}
	return unknownName
}

// Scale converts a raw register value to physical units.
func Scale(raw int16, divisor float64) float64 {
	return float64(raw) / divisor
}
