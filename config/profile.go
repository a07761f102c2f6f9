package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/orientation/register"
)

// LoadProfile reads a calibration profile saved by SaveProfile.
func LoadProfile(path string) (register.Profile, error) {
	var p register.Profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("could not read calibration profile: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		err = toml.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return p, fmt.Errorf("could not parse calibration profile %s: %w", path, err)
	}
	return p, nil
}

func SaveProfile(path string, p register.Profile) error {
	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(p)
		data = []byte(sb.String())
	} else {
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("could not encode calibration profile: %w", err)
	}
	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("could not write calibration profile: %w", err)
	}
	return nil
}
