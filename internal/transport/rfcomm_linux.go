//go:build linux

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"obdmeter/pkg/log"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Dial connects on the channel the device serves the dialer's service on.
func (r RFCOMMDialer) Dial(ctx context.Context, d Device) (io.ReadWriteCloser, error) {
	addr, err := parseBDAddr(d.Address)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	channel := r.channel(d)
	timeout := r.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}

	// Connect blocks; close the socket if ctx ends first so it returns.
	stop := context.AfterFunc(ctx, func() { unix.Shutdown(fd, unix.SHUT_RDWR) })
	err = unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: addr, Channel: channel})
	stop()
	if err != nil {
		unix.Close(fd)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rfcomm connect %s ch %d: %w", d.Address, channel, err)
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rfcomm set timeout: %w", err)
	}

	log.Info("rfcomm connected",
		zap.String("address", d.Address),
		zap.Uint8("channel", channel),
		zap.String("service", r.service().String()))
	return &rfcommConn{fd: fd}, nil
}

type rfcommConn struct {
	fd int
}

func (c *rfcommConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, ErrReadTimeout
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *rfcommConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (c *rfcommConn) Close() error { return unix.Close(c.fd) }

// parseBDAddr converts "AA:BB:CC:DD:EE:FF" into the little-endian byte order
// the kernel expects in sockaddr_rc.
func parseBDAddr(s string) ([6]uint8, error) {
	var out [6]uint8
	mac, err := net.ParseMAC(s)
	if err != nil || len(mac) != 6 {
		return out, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i := 0; i < 6; i++ {
		out[i] = mac[5-i]
	}
	return out, nil
}
