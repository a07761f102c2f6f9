// Package register maps the BNO055 page 0 register layout to typed values.
// Everything here is pure computation over byte buffers; no function touches the bus.
//
// Datasheet reference: Bosch BST-BNO055-DS000, section 4.2 (register map) and 3.6.
package register

// Address is an 8-bit offset into the chip register map.
type Address byte

// ChipIdentity is the fixed content of ChipID.
const ChipIdentity byte = 0xA0

// Default 7-bit device addresses (COM3 pin low/high).
const (
	DefaultAddress   = 0x28
	AlternateAddress = 0x29
)

// identity and revisions
const (
	ChipID       Address = 0x00
	AccelID      Address = 0x01
	MagID        Address = 0x02
	GyroID       Address = 0x03
	SoftwareLSB  Address = 0x04
	SoftwareMSB  Address = 0x05
	BootloaderID Address = 0x06
	PageID       Address = 0x07
)

// data registers, each axis is a LSB/MSB pair starting at the listed offset
const (
	AccelData        Address = 0x08
	MagData          Address = 0x0E
	GyroData         Address = 0x14
	EulerData        Address = 0x1A
	QuaternionData   Address = 0x20
	LinearAccelData  Address = 0x28
	GravityData      Address = 0x2E
	Temperature      Address = 0x34
	CalibrationStat  Address = 0x35
	SelfTestResult   Address = 0x36
	InterruptStatus  Address = 0x37
	SystemClockStat  Address = 0x38
	SystemStatusCode Address = 0x39
	SystemErrorCode  Address = 0x3A
)

// control registers
const (
	UnitSelect        Address = 0x3B
	OperationModeCtl  Address = 0x3D
	PowerModeCtl      Address = 0x3E
	SystemTrigger     Address = 0x3F
	TemperatureSource Address = 0x40
	AxisMapConfig     Address = 0x41
	AxisMapSign       Address = 0x42
)

// calibration profile
const (
	AccelOffset Address = 0x55
	MagOffset   Address = 0x5B
	GyroOffset  Address = 0x61
	AccelRadius Address = 0x67
	MagRadius   Address = 0x69
)

// SYS_TRIGGER bits
const (
	TriggerClockExternal byte = 0b10000000
	TriggerResetInt      byte = 0b01000000
	TriggerResetSystem   byte = 0b00100000
	TriggerSelfTest      byte = 0b00000001
)

// Axis returns the LSB address of axis n (0, 1, 2, ...) of a vector starting at a.
func (a Address) Axis(n int) Address {
	return a + Address(2*n)
}
