package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	uuid "github.com/satori/go.uuid"
)

const (
	// SerialPortProfile identifies the serial-port profile endpoint of the adapter.
	SerialPortProfile = "00001101-0000-1000-8000-00805F9B34FB"

	DefaultMarker      = "OBD"
	DefaultBackoff     = 5000 * time.Millisecond
	DefaultReadTimeout = 2 * time.Second
	DefaultChannel     = 1
)

// ServiceUUID is SerialPortProfile parsed.
var ServiceUUID = uuid.Must(uuid.FromString(SerialPortProfile))

// Device is one known (bonded) diagnostic adapter.
type Device struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	Channel uint8  `yaml:"channel,omitempty" json:"channel,omitempty"`

	Services []Service `yaml:"services,omitempty" json:"services,omitempty"`
}

func (d Device) String() string {
	switch {
	case d.Path != "":
		return fmt.Sprintf("%s (%s)", d.Name, d.Path)
	case d.Address != "":
		return fmt.Sprintf("%s (%s)", d.Name, d.Address)
	default:
		return d.Name
	}
}

// Lister enumerates the devices the host already knows about.
type Lister interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Dialer opens a duplex byte stream to a device. Implementations must report
// a read that saw no bytes within their timeout as ErrReadTimeout.
type Dialer interface {
	Dial(ctx context.Context, d Device) (io.ReadWriteCloser, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]Device, error)

func (f ListerFunc) Devices(ctx context.Context) ([]Device, error) { return f(ctx) }

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, d Device) (io.ReadWriteCloser, error)

func (f DialerFunc) Dial(ctx context.Context, d Device) (io.ReadWriteCloser, error) { return f(ctx, d) }

// StaticLister always returns the same devices.
type StaticLister []Device

func (l StaticLister) Devices(context.Context) ([]Device, error) {
	out := make([]Device, len(l))
	copy(out, l)
	return out, nil
}

// Select returns the first device whose name contains marker.
func Select(devices []Device, marker string) (Device, bool) {
	i := SelectIndex(devices, marker)
	if i < 0 {
		return Device{}, false
	}
	return devices[i], true
}

// SelectIndex is Select returning the position, or -1.
func SelectIndex(devices []Device, marker string) int {
	for i, d := range devices {
		if strings.Contains(d.Name, marker) {
			return i
		}
	}
	return -1
}

var handleSeq atomic.Uint64

// Handle is an open stream bound to one device. Exactly one holder at a time
// may use it; once retired every Read and Write fails with ErrHandleInvalidated.
type Handle struct {
	id     uint64
	device Device
	rw     io.ReadWriteCloser

	retired   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps rw.
func NewHandle(rw io.ReadWriteCloser, d Device) *Handle {
	return &Handle{id: handleSeq.Add(1), device: d, rw: rw}
}

func (h *Handle) ID() uint64     { return h.id }
func (h *Handle) Device() Device { return h.device }

// Valid reports whether the handle may still be used.
func (h *Handle) Valid() bool { return !h.retired.Load() }

func (h *Handle) Write(p []byte) (int, error) {
	if h.retired.Load() {
		return 0, ErrHandleInvalidated
	}
	return h.rw.Write(p)
}

func (h *Handle) Read(p []byte) (int, error) {
	if h.retired.Load() {
		return 0, ErrHandleInvalidated
	}
	return h.rw.Read(p)
}

func (h *Handle) retire() {
	h.retired.Store(true)
}

func (h *Handle) close() error {
	h.retire()
	h.closeOnce.Do(func() {
		h.closeErr = h.rw.Close()
	})
	return h.closeErr
}
