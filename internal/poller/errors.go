package poller

import "errors"

var (
	// ErrInvalidPoint is returned when a configured point cannot be polled.
	ErrInvalidPoint = errors.New("poller: invalid point")

	// ErrNoReader is returned when the poller has no Modbus reader.
	ErrNoReader = errors.New("poller: no reader")
)
