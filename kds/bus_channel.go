package kds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	EventBus "github.com/asaskevich/EventBus"
)

// BusDialer serves push channels from an in-process EventBus, used when the
// dashboard runs next to the order producer and in tests. Publish fans an
// event out to every open channel of that business.
type BusDialer struct {
	bus EventBus.Bus

	mu       sync.Mutex
	topics   map[string]bool
	channels map[string]map[*BusChannel]struct{}
}

func NewBusDialer(bus EventBus.Bus) *BusDialer {
	if bus == nil {
		bus = EventBus.New()
	}
	return &BusDialer{
		bus:      bus,
		topics:   make(map[string]bool),
		channels: make(map[string]map[*BusChannel]struct{}),
	}
}

func busTopic(businessID, event string) string {
	return "businesses:" + businessID + ":" + event
}

func (d *BusDialer) Dial(ctx context.Context, businessID string) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := &BusChannel{dialer: d, businessID: businessID, handlers: newHandlerSet()}
	d.mu.Lock()
	if d.channels[businessID] == nil {
		d.channels[businessID] = make(map[*BusChannel]struct{})
	}
	d.channels[businessID][ch] = struct{}{}
	d.mu.Unlock()
	return ch, nil
}

// Publish -> kirim event ke semua channel business; data di-encode ke JSON dulu
func (d *BusDialer) Publish(businessID, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("kds: marshal %s: %w", event, err)
	}
	d.bus.Publish(busTopic(businessID, event), json.RawMessage(raw))
	return nil
}

// ensureTopic subscribes one fan-out handler per topic on the bus. Bus
// handlers are matched by code pointer, so per-channel closures are kept in
// our own registry instead.
func (d *BusDialer) ensureTopic(businessID, event string) error {
	topic := busTopic(businessID, event)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.topics[topic] {
		return nil
	}
	err := d.bus.Subscribe(topic, func(data json.RawMessage) {
		d.fanOut(businessID, event, data)
	})
	if err != nil {
		return err
	}
	d.topics[topic] = true
	return nil
}

func (d *BusDialer) fanOut(businessID, event string, data json.RawMessage) {
	d.mu.Lock()
	targets := make([]*BusChannel, 0, len(d.channels[businessID]))
	for ch := range d.channels[businessID] {
		targets = append(targets, ch)
	}
	d.mu.Unlock()

	for _, ch := range targets {
		ch.handlers.dispatch(event, data)
	}
}

func (d *BusDialer) release(ch *BusChannel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels[ch.businessID], ch)
}

// BusChannel -> Channel di atas EventBus
type BusChannel struct {
	dialer     *BusDialer
	businessID string
	handlers   *handlerSet
}

func (c *BusChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	if err := c.dialer.ensureTopic(c.businessID, event); err != nil {
		return func() {}
	}
	return c.handlers.add(event, handler)
}

func (c *BusChannel) Close() error {
	if c.handlers.close() {
		c.dialer.release(c)
	}
	return nil
}
