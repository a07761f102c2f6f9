package session

import (
	"fmt"

	"github.com/mklimuk/imu/orientation"
)

// ConfigurationError reports the first setting of a configuration list that failed
// to apply. Settings before Index remain applied.
type ConfigurationError struct {
	Index   int
	Setting orientation.Setting
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("could not apply setting #%d %s: %v", e.Index, e.Setting.Name, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
