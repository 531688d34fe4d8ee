package obd

import (
	"context"
	"errors"
	"sync"
	"time"

	"obdmeter/internal/clock"
	"obdmeter/internal/transport"
	"obdmeter/pkg/log"

	"go.uber.org/zap"
)

// Transport hands out connected streams and takes back broken ones.
type Transport interface {
	Acquire(ctx context.Context) (*transport.Handle, error)
	Invalidate(h *transport.Handle)
}

// Publisher receives every completed snapshot.
type Publisher interface {
	Publish(s Snapshot)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Snapshot)

func (f PublisherFunc) Publish(s Snapshot) { f(s) }

// Config tunes a Poller. Zero values fall back to the defaults.
type Config struct {
	Interval   time.Duration
	BufferSize int
	Maxima     Maxima
	Requests   []PID
	Clock      clock.Clock
}

// Poller runs the request/decode/derive/publish cycle against a Transport.
type Poller struct {
	transport Transport
	publisher Publisher
	interval  time.Duration
	requests  []PID
	clock     clock.Clock
	buf       []byte

	mu     sync.RWMutex
	maxima Maxima
	cycles uint64
}

// NewPoller creates a Poller. A zero cfg.Maxima means DefaultMaxima.
func NewPoller(t Transport, pub Publisher, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Maxima == (Maxima{}) {
		cfg.Maxima = DefaultMaxima()
	}
	if len(cfg.Requests) == 0 {
		cfg.Requests = Cycle
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if pub == nil {
		pub = PublisherFunc(func(Snapshot) {})
	}
	return &Poller{
		transport: t,
		publisher: pub,
		interval:  cfg.Interval,
		requests:  cfg.Requests,
		clock:     cfg.Clock,
		buf:       make([]byte, cfg.BufferSize),
		maxima:    cfg.Maxima,
	}
}

// Maxima returns the current running maxima.
func (p *Poller) Maxima() Maxima {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxima
}

// Run polls until ctx is done. A cycle that fails on I/O invalidates its
// handle and the next cycle waits for a fresh one.
func (p *Poller) Run(ctx context.Context) error {
	for {
		h, err := p.transport.Acquire(ctx)
		if err != nil {
			return err
		}
		log.Info("polling", zap.String("device", h.Device().Name), zap.Duration("interval", p.interval))

		if err := p.serve(ctx, h); err != nil {
			return err
		}
	}
}

func (p *Poller) serve(ctx context.Context, h *transport.Handle) error {
	for {
		snap, err := p.RunCycle(ctx, h)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("cycle failed, dropping stream", zap.Error(err), zap.Uint64("handle", h.ID()))
			p.transport.Invalidate(h)
			return p.clock.Sleep(ctx, p.interval)
		}

		p.publisher.Publish(snap)

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return err
		}
	}
}

// RunCycle sends every request in order over h, waiting for each reply
// before the next request. An undecodable reply only marks its reading
// missing; an I/O failure aborts the cycle with a *CycleError and leaves the
// maxima untouched.
func (p *Poller) RunCycle(ctx context.Context, h *transport.Handle) (Snapshot, error) {
	snap := Snapshot{Device: h.Device().Name}

	for _, pid := range p.requests {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		v, err := p.query(h, pid)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				return Snapshot{}, err
			}
			log.Debug("reading unavailable", zap.String("pid", pid.Command()), zap.Error(err))
			snap.Missing = append(snap.Missing, pid.Reading)
		}
		snap.set(pid.Reading, v)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	torque, power, next := DeriveMetrics(snap.EngineLoad, snap.EngineSpeed, p.maxima)
	p.maxima = next
	p.cycles++

	snap.Cycle = p.cycles
	snap.Time = p.clock.Now()
	snap.Torque = torque
	snap.Power = power
	snap.MaxTorque = next.Torque
	snap.MaxPower = next.Power
	return snap, nil
}

// query performs one exchange. A read that times out counts as an
// undecodable reply.
func (p *Poller) query(h *transport.Handle, pid PID) (int, error) {
	if _, err := h.Write([]byte(pid.Command() + transport.CR)); err != nil {
		return Invalid, &CycleError{PID: pid, Op: "write", Err: err}
	}

	n, err := h.Read(p.buf)
	if err != nil {
		if errors.Is(err, transport.ErrReadTimeout) {
			return Invalid, &ParseError{Err: err}
		}
		return Invalid, &CycleError{PID: pid, Op: "read", Err: err}
	}
	return Decode(string(p.buf[:n]))
}
