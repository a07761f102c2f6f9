package register

import "fmt"

const unknownName = "unknown"

// OperationMode is the 4-bit OPR_MODE code.
type OperationMode uint8

const (
	OperationModeConfig OperationMode = iota
	OperationModeAccelOnly
	OperationModeMagOnly
	OperationModeGyroOnly
	OperationModeAccelMag
	OperationModeAccelGyro
	OperationModeMagGyro
	OperationModeAMG
	OperationModeIMU
	OperationModeCompass
	OperationModeM4G
	OperationModeNDOFFMCOff
	OperationModeNDOF

	// OperationModeUnknown is decoded when OPR_MODE holds a code outside the table.
	OperationModeUnknown OperationMode = 0xFF
)

var operationModeNames = []string{
	OperationModeConfig:     "config",
	OperationModeAccelOnly:  "accelerometer_only",
	OperationModeMagOnly:    "magnetometer_only",
	OperationModeGyroOnly:   "gyroscope_only",
	OperationModeAccelMag:   "accelerometer_magnetometer",
	OperationModeAccelGyro:  "accelerometer_gyroscope",
	OperationModeMagGyro:    "magnetometer_gyroscope",
	OperationModeAMG:        "accelerometer_magnetometer_gyroscope",
	OperationModeIMU:        "inertial_measurement_unit",
	OperationModeCompass:    "compass",
	OperationModeM4G:        "magnet_for_gyroscope",
	OperationModeNDOFFMCOff: "nine_degrees_of_freedom_fmc_off",
	OperationModeNDOF:       "nine_degrees_of_freedom",
}

var operationModeLayout = Layout{{Name: "operation_mode", Offset: 0, Width: 4}}

func DecodeOperationMode(b byte) OperationMode {
	code := operationModeLayout[0].Get(b)
	if int(code) >= len(operationModeNames) {
		return OperationModeUnknown
	}
	return OperationMode(code)
}

// Encode returns the full OPR_MODE byte with reserved bits cleared.
func (m OperationMode) Encode() (byte, error) {
	if int(m) >= len(operationModeNames) {
		return 0, fmt.Errorf("%w: operation mode %#x", ErrInvalidArgument, byte(m))
	}
	return operationModeLayout.Encode(0, map[string]uint8{"operation_mode": uint8(m)})
}

// Fusion reports whether the mode runs the on-chip sensor fusion.
func (m OperationMode) Fusion() bool {
	return m >= OperationModeIMU && m <= OperationModeNDOF
}

func (m OperationMode) String() string {
	if int(m) < len(operationModeNames) {
		return operationModeNames[m]
	}
	return unknownName
}

// OperationModeNames lists the writable mode names in code order.
func OperationModeNames() []string {
	return append([]string(nil), operationModeNames...)
}

func ParseOperationMode(name string) (OperationMode, error) {
	code, ok := lookup(operationModeNames, name)
	if !ok {
		return OperationModeUnknown, fmt.Errorf("%w: operation mode %q", ErrInvalidArgument, name)
	}
	return OperationMode(code), nil
}

// PowerMode is the 2-bit PWR_MODE code.
type PowerMode uint8

const (
	PowerModeNormal PowerMode = iota
	PowerModeLowPower
	PowerModeSuspend

	PowerModeUnknown PowerMode = 0xFF
)

var powerModeNames = []string{
	PowerModeNormal:   "normal",
	PowerModeLowPower: "low_power",
	PowerModeSuspend:  "suspend",
}

var powerModeLayout = Layout{{Name: "power_mode", Offset: 0, Width: 2}}

func DecodePowerMode(b byte) PowerMode {
	code := powerModeLayout[0].Get(b)
	if int(code) >= len(powerModeNames) {
		return PowerModeUnknown
	}
	return PowerMode(code)
}

func (m PowerMode) Encode() (byte, error) {
	if int(m) >= len(powerModeNames) {
		return 0, fmt.Errorf("%w: power mode %#x", ErrInvalidArgument, byte(m))
	}
	return powerModeLayout.Encode(0, map[string]uint8{"power_mode": uint8(m)})
}

func (m PowerMode) String() string {
	if int(m) < len(powerModeNames) {
		return powerModeNames[m]
	}
	return unknownName
}

func ParsePowerMode(name string) (PowerMode, error) {
	code, ok := lookup(powerModeNames, name)
	if !ok {
		return PowerModeUnknown, fmt.Errorf("%w: power mode %q", ErrInvalidArgument, name)
	}
	return PowerMode(code), nil
}

// TempSource selects the sensor feeding the TEMP register.
type TempSource uint8

const (
	TempSourceAccel TempSource = iota
	TempSourceGyro

	TempSourceUnknown TempSource = 0xFF
)

var tempSourceNames = []string{
	TempSourceAccel: "accelerometer",
	TempSourceGyro:  "gyroscope",
}

var tempSourceLayout = Layout{{Name: "temperature_source", Offset: 0, Width: 2}}

func DecodeTempSource(b byte) TempSource {
	code := tempSourceLayout[0].Get(b)
	if int(code) >= len(tempSourceNames) {
		return TempSourceUnknown
	}
	return TempSource(code)
}

func (s TempSource) Encode() (byte, error) {
	if int(s) >= len(tempSourceNames) {
		return 0, fmt.Errorf("%w: temperature source %#x", ErrInvalidArgument, byte(s))
	}
	return tempSourceLayout.Encode(0, map[string]uint8{"temperature_source": uint8(s)})
}

func (s TempSource) String() string {
	if int(s) < len(tempSourceNames) {
		return tempSourceNames[s]
	}
	return unknownName
}

func ParseTempSource(name string) (TempSource, error) {
	code, ok := lookup(tempSourceNames, name)
	if !ok {
		return TempSourceUnknown, fmt.Errorf("%w: temperature source %q", ErrInvalidArgument, name)
	}
	return TempSource(code), nil
}

// ClockSource is the clk_sel bit of SYS_TRIGGER.
type ClockSource uint8

const (
	ClockInternal ClockSource = iota
	ClockExternal
)

var clockSourceNames = []string{
	ClockInternal: "internal",
	ClockExternal: "external",
}

func (c ClockSource) String() string {
	if int(c) < len(clockSourceNames) {
		return clockSourceNames[c]
	}
	return unknownName
}

func ParseClockSource(name string) (ClockSource, error) {
	code, ok := lookup(clockSourceNames, name)
	if !ok {
		return ClockInternal, fmt.Errorf("%w: clock source %q", ErrInvalidArgument, name)
	}
	return ClockSource(code), nil
}

// Trigger returns the SYS_TRIGGER byte selecting the clock source. Other trigger
// bits are self-clearing actions and are written as zero.
func (c ClockSource) Trigger() (byte, error) {
	switch c {
	case ClockInternal:
		return 0, nil
	case ClockExternal:
		return TriggerClockExternal, nil
	}
	return 0, fmt.Errorf("%w: clock source %#x", ErrInvalidArgument, byte(c))
}

// SystemStatus is the read-only SYS_STATUS code.
type SystemStatus uint8

const SystemStatusUnknown SystemStatus = 0xFF

var systemStatusNames = []string{
	"idle",
	"system_error",
	"initializing_peripherals",
	"system_initialization",
	"executing_self_test",
	"sensor_fusion_running",
	"running_without_fusion",
}

func DecodeSystemStatus(b byte) SystemStatus {
	if int(b) >= len(systemStatusNames) {
		return SystemStatusUnknown
	}
	return SystemStatus(b)
}

func (s SystemStatus) String() string {
	if int(s) < len(systemStatusNames) {
		return systemStatusNames[s]
	}
	return unknownName
}

// SystemError is the read-only SYS_ERR code, meaningful when SystemStatus is system_error.
type SystemError uint8

const (
	SystemErrorNone    SystemError = 0
	SystemErrorUnknown SystemError = 0xFF
)

var systemErrorNames = []string{
	"no_error",
	"peripheral_initialization_error",
	"system_initialization_error",
	"self_test_failed",
	"register_map_value_out_of_range",
	"register_map_address_out_of_range",
	"register_map_write_error",
	"low_power_mode_not_available",
	"accelerometer_power_mode_not_available",
	"fusion_configuration_error",
	"sensor_configuration_error",
}

func DecodeSystemError(b byte) SystemError {
	if int(b) >= len(systemErrorNames) {
		return SystemErrorUnknown
	}
	return SystemError(b)
}

func (e SystemError) String() string {
	if int(e) < len(systemErrorNames) {
		return systemErrorNames[e]
	}
	return unknownName
}
