package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"obdmeter/pkg/log"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// PortDialer opens Device.Path through go.bug.st/serial.
type PortDialer struct {
	Baud        int
	ReadTimeout time.Duration
}

func (s PortDialer) Dial(ctx context.Context, d Device) (io.ReadWriteCloser, error) {
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

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(d.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.Path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		log.Warn("failed to reset input buffer", zap.String("port", d.Path), zap.Error(err))
	}

	log.Info("port opened", zap.String("port", d.Path), zap.Int("baud", baud))
	return &portConn{port: port}, nil
}

type portConn struct {
	port serial.Port
}

func (c *portConn) Read(p []byte) (int, error) {
	n, err := c.port.Read(p)
	if n == 0 && err == nil {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (c *portConn) Write(p []byte) (int, error) { return c.port.Write(p) }
func (c *portConn) Close() error                { return c.port.Close() }

// PortLister reports the host's serial ports as devices, named after the USB
// product string when there is one.
type PortLister struct{}

func (PortLister) Devices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}

	devices := make([]Device, 0, len(ports))
	for _, p := range ports {
		name := p.Name
		if p.IsUSB && p.Product != "" {
			name = p.Product
		}
		devices = append(devices, Device{Name: name, Address: p.SerialNumber, Path: p.Name})
	}
	return devices, nil
}
