package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled")

	// ErrIncompleteConfig is returned when url, org or bucket is missing.
	ErrIncompleteConfig = errors.New("influxdb: incomplete configuration")

	// ErrConnectionFailed is returned when the server does not answer.
	ErrConnectionFailed = errors.New("influxdb: server unreachable")

	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("influxdb: client closed")
)
