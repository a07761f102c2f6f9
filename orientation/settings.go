package orientation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mklimuk/imu/orientation/register"
)

// Setting names accepted by Apply. Each maps to one setter of BNO055.
const (
	SettingOperationMode         = "operation_mode"
	SettingPowerMode             = "power_mode"
	SettingClockSelect           = "clock_select"
	SettingTemperatureSource     = "temperature_source"
	SettingAxisMap               = "axis_map"
	SettingAccelUnit             = "acceleration_unit"
	SettingAngularRateUnit       = "angular_rate_unit"
	SettingEulerUnit             = "euler_unit"
	SettingTemperatureUnit       = "temperature_unit"
	SettingOrientationConvention = "orientation_convention"
	SettingAccelOffset           = "accelerometer_offset"
	SettingMagOffset             = "magnetometer_offset"
	SettingGyroOffset            = "gyroscope_offset"
	SettingAccelRadius           = "accelerometer_radius"
	SettingMagRadius             = "magnetometer_radius"
	SettingCalibrationProfile    = "calibration_profile"
)

// Setting is one (name, value) pair of a declarative configuration. Value is either
// the typed register value (register.OperationMode, register.AxisMap, [3]int16, ...)
// or its untyped form as decoded from YAML/TOML (names, maps, lists, numbers).
type Setting struct {
	Name  string
	Value any
}

func (s Setting) String() string {
	return fmt.Sprintf("%s=%v", s.Name, s.Value)
}

type applier func(ctx context.Context, d *BNO055, value any) error

var appliers = map[string]applier{
	SettingOperationMode: func(ctx context.Context, d *BNO055, value any) error {
		m, err := enumValue(value, register.ParseOperationMode)
		if err != nil {
			return err
		}
		return d.SetOperationMode(ctx, m)
	},
	SettingPowerMode: func(ctx context.Context, d *BNO055, value any) error {
		m, err := enumValue(value, register.ParsePowerMode)
		if err != nil {
			return err
		}
		return d.SetPowerMode(ctx, m)
	},
	SettingClockSelect: func(ctx context.Context, d *BNO055, value any) error {
		if external, ok := value.(bool); ok {
			if external {
				return d.SetClockSource(ctx, register.ClockExternal)
			}
			return d.SetClockSource(ctx, register.ClockInternal)
		}
		c, err := enumValue(value, register.ParseClockSource)
		if err != nil {
			return err
		}
		return d.SetClockSource(ctx, c)
	},
	SettingTemperatureSource: func(ctx context.Context, d *BNO055, value any) error {
		s, err := enumValue(value, register.ParseTempSource)
		if err != nil {
			return err
		}
		return d.SetTempSource(ctx, s)
	},
	SettingAxisMap: func(ctx context.Context, d *BNO055, value any) error {
		m, err := axisMapValue(value)
		if err != nil {
			return err
		}
		return d.SetAxisMap(ctx, m)
	},
	SettingAccelUnit: func(ctx context.Context, d *BNO055, value any) error {
		u, err := enumValue(value, register.ParseAccelUnit)
		if err != nil {
			return err
		}
		return d.SetAccelUnit(ctx, u)
	},
	SettingAngularRateUnit: func(ctx context.Context, d *BNO055, value any) error {
		u, err := enumValue(value, register.ParseAngularRateUnit)
		if err != nil {
			return err
		}
		return d.SetAngularRateUnit(ctx, u)
	},
	SettingEulerUnit: func(ctx context.Context, d *BNO055, value any) error {
		u, err := enumValue(value, register.ParseEulerUnit)
		if err != nil {
			return err
		}
		return d.SetEulerUnit(ctx, u)
	},
	SettingTemperatureUnit: func(ctx context.Context, d *BNO055, value any) error {
		u, err := enumValue(value, register.ParseTemperatureUnit)
		if err != nil {
			return err
		}
		return d.SetTemperatureUnit(ctx, u)
	},
	SettingOrientationConvention: func(ctx context.Context, d *BNO055, value any) error {
		o, err := enumValue(value, register.ParseOrientationConvention)
		if err != nil {
			return err
		}
		return d.SetOrientationConvention(ctx, o)
	},
	SettingAccelOffset: func(ctx context.Context, d *BNO055, value any) error {
		v, err := tripleValue(value)
		if err != nil {
			return err
		}
		return d.SetAccelOffset(ctx, v)
	},
	SettingMagOffset: func(ctx context.Context, d *BNO055, value any) error {
		v, err := tripleValue(value)
		if err != nil {
			return err
		}
		return d.SetMagOffset(ctx, v)
	},
	SettingGyroOffset: func(ctx context.Context, d *BNO055, value any) error {
		v, err := tripleValue(value)
		if err != nil {
			return err
		}
		return d.SetGyroOffset(ctx, v)
	},
	SettingAccelRadius: func(ctx context.Context, d *BNO055, value any) error {
		r, err := int16Value(value)
		if err != nil {
			return err
		}
		return d.SetAccelRadius(ctx, r)
	},
	SettingMagRadius: func(ctx context.Context, d *BNO055, value any) error {
		r, err := int16Value(value)
		if err != nil {
			return err
		}
		return d.SetMagRadius(ctx, r)
	},
	SettingCalibrationProfile: func(ctx context.Context, d *BNO055, value any) error {
		p, err := profileValue(value)
		if err != nil {
			return err
		}
		return d.SetCalibrationProfile(ctx, p)
	},
}

// SettingNames lists every setting Apply recognizes.
func SettingNames() []string {
	names := make([]string, 0, len(appliers))
	for name := range appliers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the setter named by s. Unrecognized names and values fail with
// ErrInvalidArgument before touching the bus.
func (d *BNO055) Apply(ctx context.Context, s Setting) error {
	apply, ok := appliers[s.Name]
	if !ok {
		return fmt.Errorf("%w: unrecognized setting %q", ErrInvalidArgument, s.Name)
	}
	return apply(ctx, d, s.Value)
}

func enumValue[T ~uint8](value any, parse func(string) (T, error)) (T, error) {
	switch v := value.(type) {
	case T:
		return v, nil
	case string:
		return parse(v)
	case fmt.Stringer:
		return parse(v.String())
	}
	var zero T
	return zero, fmt.Errorf("%w: value of type %T", ErrInvalidArgument, value)
}

func int16Value(value any) (int16, error) {
	var n float64
	switch v := value.(type) {
	case int16:
		return v, nil
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	case float64:
		n = v
	default:
		return 0, fmt.Errorf("%w: value of type %T is not an integer", ErrInvalidArgument, value)
	}
	if n != math.Trunc(n) || n < math.MinInt16 || n > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %v does not fit a signed 16-bit register", ErrInvalidArgument, value)
	}
	return int16(n), nil
}

func tripleValue(value any) ([3]int16, error) {
	var out [3]int16
	var items []any
	switch v := value.(type) {
	case [3]int16:
		return v, nil
	case []int16:
		for _, i := range v {
			items = append(items, i)
		}
	case []int:
		for _, i := range v {
			items = append(items, i)
		}
	case []any:
		items = v
	case map[string]any:
		items = []any{v["x"], v["y"], v["z"]}
	default:
		return out, fmt.Errorf("%w: value of type %T is not a vector", ErrInvalidArgument, value)
	}
	if len(items) != 3 {
		return out, fmt.Errorf("%w: vector needs 3 components, got %d", ErrInvalidArgument, len(items))
	}
	for i, item := range items {
		n, err := int16Value(item)
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}

func axisMapValue(value any) (register.AxisMap, error) {
	var fields map[string]any
	switch v := value.(type) {
	case register.AxisMap:
		return v, nil
	case map[string]string:
		fields = make(map[string]any, len(v))
		for k, s := range v {
			fields[k] = s
		}
	case map[string]any:
		fields = v
	default:
		return register.AxisMap{}, fmt.Errorf("%w: value of type %T is not an axis map", ErrInvalidArgument, value)
	}
	m := register.DefaultAxisMap
	for axis, raw := range fields {
		s, ok := raw.(string)
		if !ok {
			return m, fmt.Errorf("%w: axis %s remap of type %T", ErrInvalidArgument, axis, raw)
		}
		r, err := register.ParseRemap(s)
		if err != nil {
			return m, err
		}
		switch axis {
		case "x":
			m.X = r
		case "y":
			m.Y = r
		case "z":
			m.Z = r
		default:
			return m, fmt.Errorf("%w: unknown axis %q", ErrInvalidArgument, axis)
		}
	}
	return m, nil
}

func profileValue(value any) (register.Profile, error) {
	var p register.Profile
	switch v := value.(type) {
	case register.Profile:
		return v, nil
	case *register.Profile:
		if v == nil {
			return p, fmt.Errorf("%w: nil calibration profile", ErrInvalidArgument)
		}
		return *v, nil
	case map[string]any:
		var err error
		for key, raw := range v {
			switch key {
			case SettingAccelOffset:
				p.AccelOffset, err = tripleValue(raw)
			case SettingMagOffset:
				p.MagOffset, err = tripleValue(raw)
			case SettingGyroOffset:
				p.GyroOffset, err = tripleValue(raw)
			case SettingAccelRadius:
				p.AccelRadius, err = int16Value(raw)
			case SettingMagRadius:
				p.MagRadius, err = int16Value(raw)
			default:
				err = fmt.Errorf("%w: unknown calibration profile field %q", ErrInvalidArgument, key)
			}
			if err != nil {
				return p, err
			}
		}
		return p, nil
	}
	return p, fmt.Errorf("%w: calibration profile of type %T", ErrInvalidArgument, value)
}
