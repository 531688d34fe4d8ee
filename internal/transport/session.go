package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"obdmeter/internal/clock"
	"obdmeter/pkg/log"

	"go.uber.org/zap"
)

const (
	CR = "\r"

	handshakeBufferSize = 1024
)

// ErrSessionClosed is returned by Acquire once Run has returned.
var ErrSessionClosed = errors.New("session closed")

// Options tunes a Session. Zero values fall back to the defaults.
type Options struct {
	Marker       string
	Backoff      time.Duration
	InitCommands []string
	Clock        clock.Clock
	OnStatus     func(Status)
}

// Session keeps a stream to the selected device available. Run owns the
// connect loop; a connected Handle is passed to exactly one Acquire caller,
// which returns it with Invalidate when I/O on it fails.
type Session struct {
	lister Lister
	dialer Dialer
	opts   Options

	handles chan *Handle
	invalid chan *Handle
	done    chan struct{}
	running atomic.Bool

	mu      sync.RWMutex
	status  Status
	current *Handle
}

// NewSession creates a Session over the given lister and dialer.
func NewSession(lister Lister, dialer Dialer, opts Options) *Session {
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	s := &Session{
		lister:  lister,
		dialer:  dialer,
		opts:    opts,
		handles: make(chan *Handle),
		invalid: make(chan *Handle),
		done:    make(chan struct{}),
	}
	s.status = Status{State: StateDisconnected, Since: opts.Clock.Now()}
	return s
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run drives the connect loop until ctx is done. Any handle still open when
// it returns is closed.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	defer close(s.done)

	for {
		h, err := s.connect(ctx)
		if err != nil {
			s.setStatus(StateDisconnected, Device{}, 0, nil)
			return err
		}

		select {
		case s.handles <- h:
		case <-ctx.Done():
			s.teardown(h)
			return ctx.Err()
		}

		if err := s.awaitInvalidation(ctx, h); err != nil {
			s.teardown(h)
			return err
		}
	}
}

// Acquire blocks until a connected handle is available or ctx is done.
func (s *Session) Acquire(ctx context.Context) (*Handle, error) {
	select {
	case h := <-s.handles:
		return h, nil
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate retires h and tells the connect loop to close it and reconnect.
// It is safe to call more than once and after Run has returned.
func (s *Session) Invalidate(h *Handle) {
	if h == nil {
		return
	}
	h.retire()

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if h != current {
		h.close()
		return
	}

	select {
	case s.invalid <- h:
	case <-s.done:
		h.close()
	}
}

func (s *Session) awaitInvalidation(ctx context.Context, h *Handle) error {
	for {
		select {
		case bad := <-s.invalid:
			if bad != h {
				bad.close()
				continue
			}
			s.teardown(h)
			log.Info("stream invalidated, reconnecting", zap.String("device", h.Device().Name), zap.Uint64("handle", h.ID()))
			s.setStatus(StateDisconnected, h.Device(), 0, nil)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) teardown(h *Handle) {
	if err := h.close(); err != nil {
		log.Debug("close stream", zap.Error(err))
	}
	s.mu.Lock()
	if s.current == h {
		s.current = nil
	}
	s.mu.Unlock()
}

// connect retries with a fixed backoff until a stream is open or ctx is done.
func (s *Session) connect(ctx context.Context) (*Handle, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h, err := s.tryConnect(ctx, attempt)
		if err == nil {
			return h, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Warn("connect attempt failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", s.opts.Backoff))

		if err := s.opts.Clock.Sleep(ctx, s.opts.Backoff); err != nil {
			return nil, err
		}
	}
}

func (s *Session) tryConnect(ctx context.Context, attempt int) (*Handle, error) {
	s.setStatus(StateSearching, Device{}, attempt, nil)

	devices, err := s.lister.Devices(ctx)
	if err != nil {
		err = &ConnectionError{Op: "list", Err: err}
		s.setStatus(StateSearching, Device{}, attempt+1, err)
		return nil, err
	}

	dev, ok := Select(devices, s.opts.Marker)
	if !ok {
		err := fmt.Errorf("%w: no known device name contains %q", ErrNoDeviceFound, s.opts.Marker)
		s.setStatus(StateNoDeviceFound, Device{}, attempt+1, err)
		return nil, err
	}

	s.setStatus(StateConnecting, dev, attempt, nil)
	rw, err := s.dialer.Dial(ctx, dev)
	if err != nil {
		err = &ConnectionError{Device: dev, Op: "open", Err: err}
		s.setStatus(StateDisconnected, dev, attempt+1, err)
		return nil, err
	}

	if err := s.handshake(rw); err != nil {
		rw.Close()
		err = &ConnectionError{Device: dev, Op: "negotiate", Err: err}
		s.setStatus(StateDisconnected, dev, attempt+1, err)
		return nil, err
	}

	h := NewHandle(rw, dev)
	s.mu.Lock()
	s.current = h
	s.mu.Unlock()

	log.Info("connected", zap.String("device", dev.String()), zap.Uint64("handle", h.ID()))
	s.setStatus(StateConnected, dev, 0, nil)
	return h, nil
}

// handshake sends the configured init commands; each must get a reply that
// is neither empty nor an adapter error.
func (s *Session) handshake(rw io.ReadWriter) error {
	buf := make([]byte, handshakeBufferSize)
	for _, cmd := range s.opts.InitCommands {
		if _, err := rw.Write([]byte(cmd + CR)); err != nil {
			return fmt.Errorf("write %q: %w", cmd, err)
		}
		n, err := rw.Read(buf)
		if err != nil {
			return fmt.Errorf("read reply to %q: %w", cmd, err)
		}
		reply := strings.TrimSpace(string(buf[:n]))
		if reply == "" {
			return fmt.Errorf("command %q got no response", cmd)
		}
		if strings.Contains(reply, "?") || strings.Contains(strings.ToUpper(reply), "ERROR") {
			return fmt.Errorf("command %q rejected: %q", cmd, reply)
		}
		log.Debug("init command accepted", zap.String("command", cmd), zap.String("reply", reply))
	}
	return nil
}

func (s *Session) setStatus(state State, dev Device, attempt int, err error) {
	s.mu.Lock()
	prev := s.status
	next := Status{State: state, Device: dev, Attempt: attempt, Err: err, Since: prev.Since}
	if prev.State != state {
		next.Since = s.opts.Clock.Now()
	}
	s.status = next
	s.mu.Unlock()

	if prev.State != state {
		log.Info("session state", zap.Stringer("from", prev.State), zap.Stringer("to", state))
	}
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(next)
	}
}
