package modbus

import "errors"

// Domain-specific errors for Modbus operations.
var (
	// ErrWriteNotConfirmed is returned when the backend answered a coil
	// write without success:true. It is wrapped in a ServerFault.
	ErrWriteNotConfirmed = errors.New("modbus: write not confirmed by device")

	// ErrUnknownSpace is returned when a memory space name is not one of
	// the four facade spaces.
	ErrUnknownSpace = errors.New("modbus: unknown memory space")

	// ErrUnknownMethod is returned for a point method that is not a
	// facade operation.
	ErrUnknownMethod = errors.New("modbus: unknown point method")

	// ErrNoConnection is returned when a category config has neither a
	// device reference nor an inline connection.
	ErrNoConnection = errors.New("modbus: category has no device or connection")
)
