// Package config loads the device list used by the imu command line tool.
//
// A file lists devices with the transport adapter that reaches them and the ordered
// settings applied when their session is opened:
//
//	devices:
//	  - name: imu0
//	    adapter: periph
//	    bus: /dev/i2c-1
//	    address: 0x28
//	    calibration_file: imu0-calibration.yaml
//	    settings:
//	      - operation_mode: nine_degrees_of_freedom
//	      - acceleration_unit: milli_g
//
// Files ending in .toml are read as TOML with the same keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
	"github.com/mklimuk/imu/session"
)

// DefaultAddress is used for devices declared without an address.
const DefaultAddress = register.DefaultAddress

const DefaultAdapter = "periph"

var ErrUnknownDevice = errors.New("unknown device")

type File struct {
	Devices []Device `yaml:"devices" toml:"devices"`
}

type Device struct {
	Name    string `yaml:"name" toml:"name"`
	Adapter string `yaml:"adapter" toml:"adapter"`
	Bus     string `yaml:"bus" toml:"bus"`
	Address uint16 `yaml:"address" toml:"address"`
	// CalibrationFile is a profile saved by `imu calibration save`, written before
	// the other settings while the chip is still in config mode.
	CalibrationFile string           `yaml:"calibration_file" toml:"calibration_file"`
	Settings        []map[string]any `yaml:"settings" toml:"settings"`
}

// Load reads a device file, picking the decoder by extension.
func Load(path string) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.DecodeFile(path, &f)
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		err = yaml.Unmarshal(data, &f)
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	base := filepath.Dir(path)
	for i := range f.Devices {
		d := &f.Devices[i]
		if d.Adapter == "" {
			d.Adapter = DefaultAdapter
		}
		if d.Address == 0 {
			d.Address = DefaultAddress
		}
		if d.CalibrationFile != "" && !filepath.IsAbs(d.CalibrationFile) {
			d.CalibrationFile = filepath.Join(base, d.CalibrationFile)
		}
	}
	err := f.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Devices))
	for i, d := range f.Devices {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("device[%d] missing name", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("device %q declared twice", d.Name)
		}
		seen[d.Name] = true
		if d.Address > 0x7F {
			return fmt.Errorf("device %q: address %#x is not a 7-bit bus address", d.Name, d.Address)
		}
		if _, err := d.settings(); err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}
	}
	return nil
}

func (f *File) Device(name string) (Device, error) {
	for _, d := range f.Devices {
		if d.Name == name {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
}

func (f *File) Names() []string {
	names := make([]string, 0, len(f.Devices))
	for _, d := range f.Devices {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// settings turns the single-key maps of the file into ordered settings. Names are
// not checked here; the session reports unknown ones as configuration errors.
func (d Device) settings() ([]orientation.Setting, error) {
	out := make([]orientation.Setting, 0, len(d.Settings))
	for i, item := range d.Settings {
		if len(item) != 1 {
			return nil, fmt.Errorf("settings[%d] must hold exactly one name, got %d", i, len(item))
		}
		for name, value := range item {
			out = append(out, orientation.Setting{Name: name, Value: value})
		}
	}
	return out, nil
}

// SessionConfig builds the session input, loading the calibration profile if the
// device names one.
func (d Device) SessionConfig() (session.Config, error) {
	settings, err := d.settings()
	if err != nil {
		return session.Config{}, err
	}
	if d.CalibrationFile != "" {
		p, err := LoadProfile(d.CalibrationFile)
		if err != nil {
			return session.Config{}, err
		}
		settings = append([]orientation.Setting{{Name: orientation.SettingCalibrationProfile, Value: p}}, settings...)
	}
	return session.Config{
		Bus:      d.Bus,
		Address:  d.Address,
		Settings: settings,
	}, nil
}
