package register

import (
	"encoding/binary"
	"fmt"
)

var ErrInvalidArgument = fmt.Errorf("invalid argument")

// DecodeUnsigned interprets one byte, or two bytes as a little-endian pair
// (low register first).
func DecodeUnsigned(b []byte) uint16 {
	switch len(b) {
	case 0:
		return 0
	case 1:
		return uint16(b[0])
	default:
		return binary.LittleEndian.Uint16(b)
	}
}

// EncodeUnsigned is the inverse of DecodeUnsigned for two-byte pairs.
func EncodeUnsigned(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// DecodeSigned combines a LSB/MSB register pair into a two's complement value.
func DecodeSigned(lsb, msb byte) int16 {
	return int16(uint16(msb)<<8 | uint16(lsb))
}

// EncodeSigned splits v into its LSB/MSB register pair.
func EncodeSigned(v int16) (lsb, msb byte) {
	return byte(uint16(v)), byte(uint16(v) >> 8)
}

// DecodeSigned8 reinterprets a single register as a signed byte (temperature).
func DecodeSigned8(b byte) int8 {
	return int8(b)
}

// Field is a run of Width bits starting at bit Offset (0 is the LSB).
type Field struct {
	Name   string
	Offset uint8
	Width  uint8
}

func (f Field) max() uint8 {
	return uint8(1<<f.Width - 1)
}

func (f Field) mask() byte {
	return f.max() << f.Offset
}

// Get extracts the field value from b.
func (f Field) Get(b byte) uint8 {
	return (b >> f.Offset) & f.max()
}

// Set replaces the field bits of b with v.
func (f Field) Set(b byte, v uint8) (byte, error) {
	if v > f.max() {
		return b, fmt.Errorf("%w: %s value %d does not fit %d bits", ErrInvalidArgument, f.Name, v, f.Width)
	}
	return b&^f.mask() | v<<f.Offset, nil
}

// Layout lists the fields of one register, most significant first as drawn in the
// datasheet bit diagrams. Bits not covered by any field are reserved.
type Layout []Field

// Decode returns every field of b keyed by name. Reserved bits are dropped.
func (l Layout) Decode(b byte) map[string]uint8 {
	res := make(map[string]uint8, len(l))
	for _, f := range l {
		res[f.Name] = f.Get(b)
	}
	return res
}

// Encode merges values into current. Fields missing from values keep their bits
// from current; pass current = 0 for full-byte writes with zeroed reserved bits.
func (l Layout) Encode(current byte, values map[string]uint8) (byte, error) {
	for name := range values {
		if _, ok := l.field(name); !ok {
			return current, fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, name)
		}
	}
	out := current
	var err error
	for _, f := range l {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		out, err = f.Set(out, v)
		if err != nil {
			return current, err
		}
	}
	return out, nil
}

func (l Layout) field(name string) (Field, bool) {
	for _, f := range l {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Field returns the named field of the layout.
func (l Layout) Field(name string) (Field, error) {
	f, ok := l.field(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, name)
	}
	return f, nil
}

// lookup reverse-maps a name through a code-indexed table.
func lookup(table []string, name string) (uint8, bool) {
	for code, n := range table {
		if n != "" && n == name {
			return uint8(code), true
		}
	}
	return 0, false
}
