package kds

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Event dari push channel Remote Service
const (
	EventNewOrder           = "new_order"
	EventOrderStatusUpdated = "order_status_updated"
	EventPaymentUpdated     = "payment_updated"
)

var ErrChannelClosed = errors.New("kds: channel closed")

// Envelope -> bentuk pesan di push channel: {event, data}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Channel is a per-business push subscription. Handlers run on the channel's
// delivery goroutine; Subscribe returns the function that removes the handler.
type Channel interface {
	Subscribe(event string, handler func(json.RawMessage)) (unsubscribe func())
	Close() error
}

// Dialer opens a Channel for one business.
type Dialer interface {
	Dial(ctx context.Context, businessID string) (Channel, error)
}

// handlerSet -> registry handler per event, dipakai oleh semua implementasi Channel
type handlerSet struct {
	mu      sync.RWMutex
	next    uint64
	byEvent map[string]map[uint64]func(json.RawMessage)
	closed  bool
}

func newHandlerSet() *handlerSet {
	return &handlerSet{byEvent: make(map[string]map[uint64]func(json.RawMessage))}
}

func (h *handlerSet) add(event string, fn func(json.RawMessage)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	id := h.next
	h.next++
	if h.byEvent[event] == nil {
		h.byEvent[event] = make(map[uint64]func(json.RawMessage))
	}
	h.byEvent[event][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.byEvent[event], id)
		})
	}
}

// dispatch -> panggil handler di luar lock supaya handler boleh unsubscribe
func (h *handlerSet) dispatch(event string, data json.RawMessage) int {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0
	}
	fns := make([]func(json.RawMessage), 0, len(h.byEvent[event]))
	for _, fn := range h.byEvent[event] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(data)
	}
	return len(fns)
}

func (h *handlerSet) close() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.closed = true
	h.byEvent = make(map[string]map[uint64]func(json.RawMessage))
	return true
}

func (h *handlerSet) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}
