package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// TCPDialer connects to Wi-Fi adapters that expose the command line on a TCP
// port; Device.Path holds host:port.
type TCPDialer struct {
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

func (t TCPDialer) Dial(ctx context.Context, d Device) (io.ReadWriteCloser, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("device %q has no address", d.Name)
	}
	dialTimeout := t.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	readTimeout := t.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	nd := net.Dialer{Timeout: dialTimeout}
	conn, err := nd.DialContext(ctx, "tcp", d.Path)
	if err != nil {
		return nil, err
	}
	return &tcpConn{Conn: conn, readTimeout: readTimeout}, nil
}

type tcpConn struct {
	net.Conn
	readTimeout time.Duration
}

func (c *tcpConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(p)
	if n == 0 && errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, ErrReadTimeout
	}
	if n > 0 && errors.Is(err, os.ErrDeadlineExceeded) {
		err = nil
	}
	return n, err
}
