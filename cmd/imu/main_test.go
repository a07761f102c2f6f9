package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	console.SetOutput(&out, &out)
	t.Cleanup(func() { console.SetOutput(os.Stdout, os.Stderr) })
	return &out
}

func TestRun_StatusYAML(t *testing.T) {
	out := captureOutput(t)

	code := run([]string{"imu", "--adapter", "sim", "--set", "operation_mode=nine_degrees_of_freedom", "status", "-o", "yaml"})
	require.Equal(t, 0, code)

	var info map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, int(register.ChipIdentity), info["chip_id"])
	assert.Equal(t, "nine_degrees_of_freedom", info["operation_mode"])
	assert.Equal(t, "sensor_fusion_running", info["system_status"])
	assert.Equal(t, map[string]any{"system": 3, "gyroscope": 3, "accelerometer": 3, "magnetometer": 3}, info["calibration"])
}

func TestRun_Position(t *testing.T) {
	out := captureOutput(t)

	code := run([]string{"imu", "-a", "sim", "--set", "acceleration_unit=milli_g", "position", "-o", "yaml"})
	require.Equal(t, 0, code)

	var p orientation.Position
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &p))
	assert.Equal(t, 981.0, p.Acceleration.Z)
	assert.Equal(t, "mg", p.Acceleration.Unit)
	assert.Equal(t, 1.0, p.Quaternion.W)
}

func TestRun_Failures(t *testing.T) {
	captureOutput(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown setting", []string{"imu", "-a", "sim", "--set", "warp=9", "status"}},
		{"bad address", []string{"imu", "-a", "sim", "--address", "zz", "status"}},
		{"unknown adapter", []string{"imu", "-a", "serial", "status"}},
		{"unknown mode", []string{"imu", "-a", "sim", "mode", "set", "warp_drive"}},
		{"missing config", []string{"imu", "-c", "missing.yaml", "status"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.NotEqual(t, 0, run(test.args))
		})
	}
}

func TestParseSetting(t *testing.T) {
	tests := []struct {
		pair     string
		expected orientation.Setting
	}{
		{"operation_mode=compass", orientation.Setting{Name: "operation_mode", Value: "compass"}},
		{"clock_select=true", orientation.Setting{Name: "clock_select", Value: true}},
		{"accelerometer_radius=1000", orientation.Setting{Name: "accelerometer_radius", Value: 1000}},
		{"gyroscope_offset=[1,-2,3]", orientation.Setting{Name: "gyroscope_offset", Value: []any{1, -2, 3}}},
		{"axis_map={x: +y, y: x}", orientation.Setting{Name: "axis_map", Value: map[string]any{"x": "+y", "y": "x"}}},
		{"euler_unit=", orientation.Setting{Name: "euler_unit", Value: ""}},
	}
	for _, test := range tests {
		t.Run(test.pair, func(t *testing.T) {
			s, err := parseSetting(test.pair)
			require.NoError(t, err)
			assert.Equal(t, test.expected, s)
		})
	}
	_, err := parseSetting("operation_mode")
	assert.Error(t, err)
	_, err = parseSetting("=compass")
	assert.Error(t, err)
}

func newSimEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.yaml")
	content := `
devices:
  - name: front
    adapter: sim
    bus: sim0
    settings:
      - operation_mode: nine_degrees_of_freedom
  - name: rear
    adapter: sim
    bus: sim0
    address: 0x29
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	app := newApp()
	var e *env
	app.Action = func(c *cli.Context) error {
		var err error
		e, err = newEnv(c)
		return err
	}
	require.NoError(t, app.Run([]string{"imu", "-c", path}))
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestExecLine(t *testing.T) {
	out := captureOutput(t)
	e := newSimEnv(t)

	require.NoError(t, execLine(e, "mode"))
	assert.Contains(t, out.String(), "nine_degrees_of_freedom")

	require.NoError(t, execLine(e, "use rear"))
	require.NoError(t, execLine(e, "mode set compass"))
	mode, err := e.registry.OperationMode(context.Background(), "sim0", 0x29)
	require.NoError(t, err)
	assert.Equal(t, register.OperationModeCompass, mode)

	assert.Len(t, e.registry.Keys(), 2)
	require.NoError(t, execLine(e, "idle 0s"))
	require.NoError(t, execLine(e, "status"))
	require.NoError(t, execLine(e, "position"))
	require.NoError(t, execLine(e, "connected"))
	require.NoError(t, execLine(e, "calibration"))
	require.NoError(t, execLine(e, "reset"))
	require.NoError(t, execLine(e, ""))

	assert.Error(t, execLine(e, "use middle"))
	assert.Error(t, execLine(e, "mode set warp_drive"))
	assert.Error(t, execLine(e, "dance"))
	assert.ErrorIs(t, execLine(e, "exit"), errQuit)
}

func TestInConfigMode(t *testing.T) {
	captureOutput(t)
	e := newSimEnv(t)
	s, err := e.session()
	require.NoError(t, err)

	var during register.OperationMode
	err = inConfigMode(context.Background(), s, func(ctx context.Context, d *orientation.BNO055) error {
		var err error
		during, err = d.OperationMode(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, register.OperationModeConfig, during)

	mode, err := s.OperationMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, register.OperationModeNDOF, mode)
}
