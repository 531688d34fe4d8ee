package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"obdmeter/pkg/log"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

// DefaultBaud matches most Bluetooth ELM327 clones bound as /dev/rfcommN.
const DefaultBaud = 38400

// SerialDialer opens Device.Path as a tty, e.g. an RFCOMM channel bound
// with `rfcomm bind`.
type SerialDialer struct {
	Baud        int
	ReadTimeout time.Duration
}

func (s SerialDialer) Dial(ctx context.Context, d Device) (io.ReadWriteCloser, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("device %q has no port path", d.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baud := s.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	timeout := s.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	cfg := &serial.Config{
		Name:        d.Path,
		Baud:        baud,
		ReadTimeout: timeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}

	// Discard whatever the adapter sent before we were listening.
	if err := p.Flush(); err != nil {
		log.Warn("failed to flush port", zap.String("port", d.Path), zap.Error(err))
	}

	log.Info("serial port opened", zap.String("port", d.Path), zap.Int("baud", baud))
	return &serialConn{port: p}, nil
}

type serialConn struct {
	port *serial.Port
}

// Read maps the tty's empty read (VTIME expired) to ErrReadTimeout.
func (c *serialConn) Read(p []byte) (int, error) {
	n, err := c.port.Read(p)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (c *serialConn) Write(p []byte) (int, error) { return c.port.Write(p) }
func (c *serialConn) Close() error                { return c.port.Close() }
