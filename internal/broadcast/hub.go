// Package broadcast fans values out to subscribers without letting a slow
// subscriber hold up the producer.
package broadcast

import "sync"

// Hub delivers every published value to each subscriber. A subscriber that
// has not consumed its previous value gets it replaced by the newer one.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	last   T
	has    bool
	closed bool
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[chan T]struct{})}
}

// Subscribe returns a channel receiving future values, primed with the
// latest one if any. Cancel stops delivery and closes the channel.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.has {
		ch <- h.last
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Publish records v as the latest value and offers it to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last, h.has = v, true

	for ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Drop the stale value and retry; we hold the only sender side.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Latest returns the most recent value and whether one was published.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.has
}

// Close closes every subscriber channel; later publishes are dropped.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
