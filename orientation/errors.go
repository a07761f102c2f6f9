package orientation

import (
	"fmt"

	"github.com/mklimuk/imu/orientation/register"
)

// ErrInvalidArgument is returned, before any bus I/O, for values outside a setter's domain.
var ErrInvalidArgument = register.ErrInvalidArgument

// BusError wraps a transport failure with the register it was addressed to.
type BusError struct {
	Op       string
	Register register.Address
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bno055: bus %s at register %#02x failed: %v", e.Op, byte(e.Register), e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// IdentityMismatchError means the chip identity register did not hold register.ChipIdentity.
type IdentityMismatchError struct {
	Expected byte
	Got      byte
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("bno055: chip identity mismatch: expected %#02x, got %#02x", e.Expected, e.Got)
}
