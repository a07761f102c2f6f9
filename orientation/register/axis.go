package register

import (
	"fmt"
	"strings"
)

// Axis is a 2-bit AXIS_MAP_CONFIG source code.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ

	AxisUnknown Axis = 0xFF
)

var axisNames = []string{
	AxisX: "x",
	AxisY: "y",
	AxisZ: "z",
}

func (a Axis) String() string { return name(axisNames, uint8(a)) }

// Sign is a 1-bit AXIS_MAP_SIGN value.
type Sign uint8

const (
	Positive Sign = iota
	Negative
)

func (s Sign) String() string {
	if s == Negative {
		return "-"
	}
	return "+"
}

// Remap says which physical axis (and sign) feeds one output axis.
type Remap struct {
	Source Axis
	Sign   Sign
}

func (r Remap) String() string {
	return r.Sign.String() + r.Source.String()
}

// ParseRemap accepts "x", "+y", "-z". "unknown" parses back to AxisUnknown so decoded
// maps read back from text; Encode still rejects it.
func ParseRemap(s string) (Remap, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	r := Remap{Sign: Positive}
	switch {
	case strings.HasPrefix(s, "-"):
		r.Sign = Negative
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == unknownName {
		r.Source = AxisUnknown
		return r, nil
	}
	code, ok := lookup(axisNames, s)
	if !ok {
		return Remap{}, fmt.Errorf("%w: axis %q", ErrInvalidArgument, s)
	}
	r.Source = Axis(code)
	return r, nil
}

var AxisConfigLayout = Layout{
	{Name: "z", Offset: 4, Width: 2},
	{Name: "y", Offset: 2, Width: 2},
	{Name: "x", Offset: 0, Width: 2},
}

var AxisSignLayout = Layout{
	{Name: "x", Offset: 2, Width: 1},
	{Name: "y", Offset: 1, Width: 1},
	{Name: "z", Offset: 0, Width: 1},
}

// AxisMap is the decoded AXIS_MAP_CONFIG / AXIS_MAP_SIGN pair. Sources are expected
// to be a permutation of x, y, z; the codec does not check it and the chip ignores
// invalid configurations.
type AxisMap struct {
	X Remap `yaml:"x"`
	Y Remap `yaml:"y"`
	Z Remap `yaml:"z"`
}

var DefaultAxisMap = AxisMap{
	X: Remap{Source: AxisX},
	Y: Remap{Source: AxisY},
	Z: Remap{Source: AxisZ},
}

func DecodeAxisMap(config, sign byte) AxisMap {
	c := AxisConfigLayout.Decode(config)
	s := AxisSignLayout.Decode(sign)
	remap := func(axis string) Remap {
		src := Axis(c[axis])
		if src > AxisZ {
			src = AxisUnknown
		}
		return Remap{Source: src, Sign: Sign(s[axis])}
	}
	return AxisMap{X: remap("x"), Y: remap("y"), Z: remap("z")}
}

// Encode returns full AXIS_MAP_CONFIG and AXIS_MAP_SIGN bytes with reserved bits cleared.
func (m AxisMap) Encode() (config, sign byte, err error) {
	sources := map[string]uint8{}
	signs := map[string]uint8{}
	for axis, r := range map[string]Remap{"x": m.X, "y": m.Y, "z": m.Z} {
		if r.Source > AxisZ {
			return 0, 0, fmt.Errorf("%w: axis %s source %#x", ErrInvalidArgument, axis, byte(r.Source))
		}
		if r.Sign > Negative {
			return 0, 0, fmt.Errorf("%w: axis %s sign %#x", ErrInvalidArgument, axis, byte(r.Sign))
		}
		sources[axis] = uint8(r.Source)
		signs[axis] = uint8(r.Sign)
	}
	config, err = AxisConfigLayout.Encode(0, sources)
	if err != nil {
		return 0, 0, err
	}
	sign, err = AxisSignLayout.Encode(0, signs)
	if err != nil {
		return 0, 0, err
	}
	return config, sign, nil
}

func (m AxisMap) String() string {
	return fmt.Sprintf("x=%s y=%s z=%s", m.X, m.Y, m.Z)
}
