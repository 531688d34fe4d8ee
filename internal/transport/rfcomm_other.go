//go:build !linux

package transport

import (
	"context"
	"errors"
	"io"
)

// Dial is only implemented on linux; elsewhere bind the adapter to a serial
// port and use SerialDialer.
func (RFCOMMDialer) Dial(context.Context, Device) (io.ReadWriteCloser, error) {
	return nil, errors.New("rfcomm sockets are not supported on this platform")
}
