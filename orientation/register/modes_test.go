package register

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationMode_Table(t *testing.T) {
	for code := 0; code < 0x10; code++ {
		m := DecodeOperationMode(byte(code))
		if code > int(OperationModeNDOF) {
			assert.Equal(t, OperationModeUnknown, m, "code %#x", code)
			assert.Equal(t, "unknown", m.String())
			_, err := m.Encode()
			assert.True(t, errors.Is(err, ErrInvalidArgument))
			continue
		}
		assert.Equal(t, OperationMode(code), m)
		parsed, err := ParseOperationMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
		b, err := m.Encode()
		require.NoError(t, err)
		assert.Equal(t, byte(code), b)
	}
}

func TestOperationModeNames(t *testing.T) {
	names := OperationModeNames()
	require.Len(t, names, int(OperationModeNDOF)+1)
	assert.Equal(t, "config", names[0])
	assert.Equal(t, "nine_degrees_of_freedom", names[OperationModeNDOF])
	names[0] = "changed"
	assert.Equal(t, "config", OperationModeConfig.String())
}

func TestOperationMode_NDOF(t *testing.T) {
	m, err := ParseOperationMode("nine_degrees_of_freedom")
	require.NoError(t, err)
	b, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0b00001100), b)
	assert.True(t, m.Fusion())
	assert.False(t, OperationModeAMG.Fusion())
}

func TestOperationMode_DecodeIgnoresReserved(t *testing.T) {
	assert.Equal(t, OperationModeNDOF, DecodeOperationMode(0b1111_1100))
}

func TestOperationMode_ParseUnknown(t *testing.T) {
	m, err := ParseOperationMode("warp_drive")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, OperationModeUnknown, m)
}

func TestPowerMode(t *testing.T) {
	assert.Equal(t, PowerModeSuspend, DecodePowerMode(0x02))
	assert.Equal(t, PowerModeUnknown, DecodePowerMode(0x03))
	assert.Equal(t, PowerModeLowPower, DecodePowerMode(0b1111_1101))
	b, err := PowerModeLowPower.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)
	_, err = ParsePowerMode("hibernate")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestTempSource(t *testing.T) {
	assert.Equal(t, TempSourceGyro, DecodeTempSource(0x01))
	assert.Equal(t, TempSourceUnknown, DecodeTempSource(0x03))
	s, err := ParseTempSource("accelerometer")
	require.NoError(t, err)
	assert.Equal(t, TempSourceAccel, s)
}

func TestClockSource(t *testing.T) {
	b, err := ClockExternal.Trigger()
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), b)
	_, err = ClockSource(5).Trigger()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestSystemStatusAndError(t *testing.T) {
	assert.Equal(t, "sensor_fusion_running", DecodeSystemStatus(5).String())
	assert.Equal(t, SystemStatusUnknown, DecodeSystemStatus(9))
	assert.Equal(t, "fusion_configuration_error", DecodeSystemError(9).String())
	assert.Equal(t, "unknown", DecodeSystemError(0x42).String())
}

func TestAxisMap(t *testing.T) {
	m := AxisMap{
		X: Remap{Source: AxisY, Sign: Negative},
		Y: Remap{Source: AxisX},
		Z: Remap{Source: AxisZ, Sign: Negative},
	}
	config, sign, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0b00_10_00_01), config)
	assert.Equal(t, byte(0b101), sign)
	assert.Equal(t, m, DecodeAxisMap(config, sign))

	config, sign, err = DefaultAxisMap.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0x24), config)
	assert.Equal(t, byte(0x00), sign)
}

func TestAxisMap_Unknown(t *testing.T) {
	m := DecodeAxisMap(0b11, 0)
	assert.Equal(t, AxisUnknown, m.X.Source)
	_, _, err := m.Encode()
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	text, err := m.X.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "+unknown", string(text))
	var back Remap
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, m.X, back)
}

func TestParseRemap(t *testing.T) {
	r, err := ParseRemap("-Z")
	require.NoError(t, err)
	assert.Equal(t, Remap{Source: AxisZ, Sign: Negative}, r)
	r, err = ParseRemap("y")
	require.NoError(t, err)
	assert.Equal(t, "+y", r.String())
	_, err = ParseRemap("w")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
