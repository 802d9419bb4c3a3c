package device

import "errors"

// Domain errors for the device package.
var (
	// ErrUnknownTypeCode is returned when a config names no known device type.
	ErrUnknownTypeCode = errors.New("device: unknown type code")

	// ErrInvalidConfig is returned when a config object cannot be decoded.
	ErrInvalidConfig = errors.New("device: invalid config")

	// ErrNotModbus is returned when a device has no Modbus endpoint.
	ErrNotModbus = errors.New("device: not a modbus device")
)
