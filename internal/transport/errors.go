package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDeviceFound means no known device matched the selection marker.
	ErrNoDeviceFound = errors.New("no device found")

	// ErrReadTimeout means a read returned no bytes within the driver timeout.
	ErrReadTimeout = errors.New("read timeout")

	// ErrHandleInvalidated is returned for I/O on a retired handle.
	ErrHandleInvalidated = errors.New("handle invalidated")
)

// ConnectionError is a failure to open or negotiate a stream to a device.
type ConnectionError struct {
	Device Device
	Op     string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device.Name, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
