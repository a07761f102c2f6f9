package register

import "fmt"

var CalibrationLayout = Layout{
	{Name: "system", Offset: 6, Width: 2},
	{Name: "gyroscope", Offset: 4, Width: 2},
	{Name: "accelerometer", Offset: 2, Width: 2},
	{Name: "magnetometer", Offset: 0, Width: 2},
}

// CalibrationStatus holds the 0 (uncalibrated) to 3 (fully calibrated) level per subsystem.
type CalibrationStatus struct {
	System        uint8 `yaml:"system"`
	Gyroscope     uint8 `yaml:"gyroscope"`
	Accelerometer uint8 `yaml:"accelerometer"`
	Magnetometer  uint8 `yaml:"magnetometer"`
}

func DecodeCalibrationStatus(b byte) CalibrationStatus {
	f := CalibrationLayout.Decode(b)
	return CalibrationStatus{
		System:        f["system"],
		Gyroscope:     f["gyroscope"],
		Accelerometer: f["accelerometer"],
		Magnetometer:  f["magnetometer"],
	}
}

func (c CalibrationStatus) Calibrated() bool {
	return c.System == 3 && c.Gyroscope == 3 && c.Accelerometer == 3 && c.Magnetometer == 3
}

var SelfTestLayout = Layout{
	{Name: "mcu", Offset: 3, Width: 1},
	{Name: "gyroscope", Offset: 2, Width: 1},
	{Name: "magnetometer", Offset: 1, Width: 1},
	{Name: "accelerometer", Offset: 0, Width: 1},
}

// SelfTest is the decoded ST_RESULT register; true means the test passed.
type SelfTest struct {
	MCU           bool `yaml:"mcu"`
	Gyroscope     bool `yaml:"gyroscope"`
	Magnetometer  bool `yaml:"magnetometer"`
	Accelerometer bool `yaml:"accelerometer"`
}

func DecodeSelfTest(b byte) SelfTest {
	f := SelfTestLayout.Decode(b)
	return SelfTest{
		MCU:           f["mcu"] == 1,
		Gyroscope:     f["gyroscope"] == 1,
		Magnetometer:  f["magnetometer"] == 1,
		Accelerometer: f["accelerometer"] == 1,
	}
}

func (s SelfTest) Passed() bool {
	return s.MCU && s.Gyroscope && s.Magnetometer && s.Accelerometer
}

// ProfileSize is the length of the contiguous offset/radius block at AccelOffset.
const ProfileSize = 22

// Profile is the calibration data block (ACC_OFFSET .. MAG_RADIUS) that can be
// saved after calibration and written back in config mode.
type Profile struct {
	AccelOffset [3]int16 `yaml:"accelerometer_offset" toml:"accelerometer_offset"`
	MagOffset   [3]int16 `yaml:"magnetometer_offset" toml:"magnetometer_offset"`
	GyroOffset  [3]int16 `yaml:"gyroscope_offset" toml:"gyroscope_offset"`
	AccelRadius int16    `yaml:"accelerometer_radius" toml:"accelerometer_radius"`
	MagRadius   int16    `yaml:"magnetometer_radius" toml:"magnetometer_radius"`
}

func DecodeProfile(b []byte) (Profile, error) {
	if len(b) != ProfileSize {
		return Profile{}, fmt.Errorf("%w: profile is %d bytes, expected %d", ErrInvalidArgument, len(b), ProfileSize)
	}
	word := func(i int) int16 { return DecodeSigned(b[2*i], b[2*i+1]) }
	var p Profile
	for axis := 0; axis < 3; axis++ {
		p.AccelOffset[axis] = word(axis)
		p.MagOffset[axis] = word(3 + axis)
		p.GyroOffset[axis] = word(6 + axis)
	}
	p.AccelRadius = word(9)
	p.MagRadius = word(10)
	return p, nil
}

func (p Profile) Encode() []byte {
	words := make([]int16, 0, ProfileSize/2)
	words = append(words, p.AccelOffset[:]...)
	words = append(words, p.MagOffset[:]...)
	words = append(words, p.GyroOffset[:]...)
	words = append(words, p.AccelRadius, p.MagRadius)
	out := make([]byte, 0, ProfileSize)
	for _, w := range words {
		lsb, msb := EncodeSigned(w)
		out = append(out, lsb, msb)
	}
	return out
}
