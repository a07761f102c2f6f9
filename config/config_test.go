package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlDevices = `
devices:
  - name: imu0
    bus: /dev/i2c-1
    settings:
      - operation_mode: nine_degrees_of_freedom
      - acceleration_unit: milli_g
      - axis_map: {x: "+y", y: "x", z: "-z"}
      - accelerometer_offset: [1, -2, 3]
  - name: imu1
    adapter: mcp2221
    address: 0x29
`

const tomlDevices = `
[[devices]]
name = "imu0"
bus = "/dev/i2c-1"
settings = [
  { operation_mode = "nine_degrees_of_freedom" },
  { acceleration_unit = "milli_g" },
  { axis_map = { x = "+y", y = "x", z = "-z" } },
  { accelerometer_offset = [1, -2, 3] },
]

[[devices]]
name = "imu1"
adapter = "mcp2221"
address = 0x29
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"devices.yaml", yamlDevices},
		{"devices.toml", tomlDevices},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f, err := Load(writeFile(t, test.name, test.content))
			require.NoError(t, err)
			assert.Equal(t, []string{"imu0", "imu1"}, f.Names())

			imu0, err := f.Device("imu0")
			require.NoError(t, err)
			assert.Equal(t, DefaultAdapter, imu0.Adapter)
			assert.Equal(t, uint16(DefaultAddress), imu0.Address)

			imu1, err := f.Device("imu1")
			require.NoError(t, err)
			assert.Equal(t, "mcp2221", imu1.Adapter)
			assert.Equal(t, uint16(0x29), imu1.Address)

			cfg, err := imu0.SessionConfig()
			require.NoError(t, err)
			assert.Equal(t, "/dev/i2c-1", cfg.Bus)
			require.Len(t, cfg.Settings, 4)
			names := make([]string, 0, len(cfg.Settings))
			for _, s := range cfg.Settings {
				names = append(names, s.Name)
			}
			assert.Equal(t, []string{
				orientation.SettingOperationMode,
				orientation.SettingAccelUnit,
				orientation.SettingAxisMap,
				orientation.SettingAccelOffset,
			}, names)
		})
	}
}

// Decoded file values must be accepted by the driver as they come out of the decoder.
func TestLoad_SettingsApply(t *testing.T) {
	for _, name := range []string{"devices.yaml", "devices.toml"} {
		t.Run(name, func(t *testing.T) {
			content := yamlDevices
			if filepath.Ext(name) == ".toml" {
				content = tomlDevices
			}
			f, err := Load(writeFile(t, name, content))
			require.NoError(t, err)
			dev, err := f.Device("imu0")
			require.NoError(t, err)
			cfg, err := dev.SessionConfig()
			require.NoError(t, err)

			chip := orientation.NewMockChip()
			d := orientation.NewBNO055(chip, orientation.WithoutDelays())
			for _, s := range cfg.Settings {
				require.NoError(t, d.Apply(context.Background(), s), s.String())
			}
			assert.Equal(t, byte(0x0C), chip.Register(register.OperationModeCtl))
			assert.Equal(t, byte(0x81), chip.Register(register.UnitSelect))
			assert.Equal(t, byte(0x21), chip.Register(register.AxisMapConfig))
			assert.Equal(t, byte(0x01), chip.Register(register.AxisMapSign))
			assert.Equal(t, byte(0xFE), chip.Register(register.AccelOffset+2))
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"missing name", "a.yaml", "devices:\n  - bus: /dev/i2c-1\n"},
		{"duplicate", "a.yaml", "devices:\n  - name: a\n  - name: a\n"},
		{"address", "a.yaml", "devices:\n  - name: a\n    address: 0x80\n"},
		{"two names in one setting", "a.yaml", "devices:\n  - name: a\n    settings:\n      - {power_mode: normal, euler_unit: degrees}\n"},
		{"syntax", "a.toml", "[[devices]\n"},
		{"extension", "a.json", "{}"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeFile(t, test.file, test.content))
			assert.Error(t, err)
		})
	}
}

func TestFile_DeviceUnknown(t *testing.T) {
	f := &File{}
	_, err := f.Device("imu9")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestProfile_RoundTrip(t *testing.T) {
	p := register.Profile{
		AccelOffset: [3]int16{-12, 4, 30},
		MagOffset:   [3]int16{100, -200, 300},
		GyroOffset:  [3]int16{-1, 0, 1},
		AccelRadius: 1000,
		MagRadius:   640,
	}
	for _, name := range []string{"profile.yaml", "profile.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveProfile(path, p))
			loaded, err := LoadProfile(path)
			require.NoError(t, err)
			assert.Equal(t, p, loaded)
		})
	}
}

func TestDevice_SessionConfigWithProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveProfile(filepath.Join(dir, "cal.yaml"), register.Profile{AccelRadius: 1000}))
	path := filepath.Join(dir, "devices.yaml")
	content := "devices:\n  - name: a\n    calibration_file: cal.yaml\n    settings:\n      - operation_mode: nine_degrees_of_freedom\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	dev, err := f.Device("a")
	require.NoError(t, err)
	cfg, err := dev.SessionConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Settings, 2)
	assert.Equal(t, orientation.SettingCalibrationProfile, cfg.Settings[0].Name)
	assert.Equal(t, register.Profile{AccelRadius: 1000}, cfg.Settings[0].Value)

	dev.CalibrationFile = filepath.Join(dir, "missing.yaml")
	_, err = dev.SessionConfig()
	assert.Error(t, err)
}
