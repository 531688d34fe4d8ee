// Package mock simulates an ELM327 adapter attached to a running engine.
package mock

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"

	"obdmeter/internal/obd"
	"obdmeter/internal/transport"
)

// DeviceName is the name the simulated adapter advertises.
const DeviceName = "OBDII (simulated)"

// Adapter answers mode 01 requests for the PIDs the poller asks for, plus
// the common AT commands. Replies carry no prompt.
type Adapter struct {
	mu      sync.Mutex
	rng     *rand.Rand
	pending strings.Builder
	closed  bool

	// simulated values
	rpm     int
	load    int
	coolant int
	oil     int
}

// NewAdapter returns an idling engine; seed makes the random walk repeatable.
func NewAdapter(seed int64) *Adapter {
	return &Adapter{
		rng:     rand.New(rand.NewSource(seed)),
		rpm:     800,
		load:    20,
		coolant: 75,
		oil:     80,
	}
}

func (a *Adapter) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, io.ErrClosedPipe
	}
	for _, line := range strings.Split(string(p), transport.CR) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		a.pending.WriteString(a.reply(line))
		a.pending.WriteString(transport.CR)
	}
	return len(p), nil
}

func (a *Adapter) Read(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, io.ErrClosedPipe
	}
	if a.pending.Len() == 0 {
		return 0, transport.ErrReadTimeout
	}
	out := a.pending.String()
	n := copy(p, out)
	a.pending.Reset()
	a.pending.WriteString(out[n:])
	return n, nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Values returns the current simulated oil temp, coolant temp, load and rpm.
func (a *Adapter) Values() (oil, coolant, load, rpm int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.oil, a.coolant, a.load, a.rpm
}

func (a *Adapter) reply(cmd string) string {
	upper := strings.ToUpper(cmd)
	switch {
	case upper == "ATZ":
		return "ELM327 v1.5"
	case strings.HasPrefix(upper, "AT"):
		return "OK"
	}

	switch strings.ReplaceAll(upper, " ", "") {
	case obd.PIDOilTemp.String():
		a.step()
		return encode(obd.PIDOilTemp, a.oil, 2)
	case obd.PIDCoolantTemp.String():
		return encode(obd.PIDCoolantTemp, a.coolant, 2)
	case obd.PIDEngineLoad.String():
		return encode(obd.PIDEngineLoad, a.load, 2)
	case obd.PIDEngineRPM.String():
		return encode(obd.PIDEngineRPM, a.rpm, 4)
	default:
		return "?"
	}
}

// encode produces the payload the poller's decoder maps back to v.
func encode(pid obd.PID, v, digits int) string {
	return fmt.Sprintf("41 %s %0*X", pid.Code, digits, v+obd.Bias)
}

// step random-walks the engine once per cycle.
func (a *Adapter) step() {
	a.rpm = clamp(a.rpm+a.rng.Intn(201)-100, 600, 6000)
	a.load = clamp(a.load+a.rng.Intn(11)-5, 0, 100)
	a.coolant = clamp(a.coolant+a.rng.Intn(3)-1, 60, 110)
	a.oil = clamp(a.oil+a.rng.Intn(3)-1, 60, 130)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Dialer opens a fresh simulated adapter on every Dial.
type Dialer struct {
	mu   sync.Mutex
	seed int64
}

func NewDialer(seed int64) *Dialer {
	return &Dialer{seed: seed}
}

func (d *Dialer) Dial(ctx context.Context, dev transport.Device) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seed++
	return NewAdapter(d.seed), nil
}

// Lister reports the simulated adapter as the only known device.
func Lister() transport.Lister {
	return transport.StaticLister{{Name: DeviceName, Path: "mock"}}
}
