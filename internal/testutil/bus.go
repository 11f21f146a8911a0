package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/HerbHall/netsense/pkg/plugin"
)

var _ plugin.EventBus = (*RecordingBus)(nil)

type subscription struct {
	id      int
	topic   string
	handler plugin.EventHandler
}

// RecordingBus keeps every published event and delivers it to subscribers
// on the caller's goroutine, the way the real bus does for Publish.
type RecordingBus struct {
	mu     sync.Mutex
	events []plugin.Event
	subs   []subscription
	nextID int
}

func NewRecordingBus() *RecordingBus {
	return &RecordingBus{}
}

func (b *RecordingBus) Publish(ctx context.Context, event plugin.Event) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	var handlers []plugin.EventHandler
	for _, s := range b.subs {
		if s.topic == "" || s.topic == event.Topic {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, event)
	}
	return nil
}

// PublishAsync behaves like Publish so tests stay deterministic.
func (b *RecordingBus) PublishAsync(ctx context.Context, event plugin.Event) {
	_ = b.Publish(ctx, event)
}

func (b *RecordingBus) Subscribe(topic string, handler plugin.EventHandler) func() {
	return b.subscribe(topic, handler)
}

func (b *RecordingBus) SubscribeAll(handler plugin.EventHandler) func() {
	return b.subscribe("", handler)
}

func (b *RecordingBus) subscribe(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, topic: topic, handler: handler})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Events returns a copy of all recorded events.
func (b *RecordingBus) Events() []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]plugin.Event, len(b.events))
	copy(out, b.events)
	return out
}

// WithPrefix returns the recorded events whose topic starts with prefix,
// e.g. "permission." or "netinfo.".
func (b *RecordingBus) WithPrefix(prefix string) []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []plugin.Event
	for _, e := range b.events {
		if strings.HasPrefix(e.Topic, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events were published on topic.
func (b *RecordingBus) Count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

// Payloads returns the payloads published on topic, in order.
func (b *RecordingBus) Payloads(topic string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.events {
		if e.Topic == topic {
			out = append(out, e.Payload)
		}
	}
	return out
}

// Reset clears the recorded events. Subscriptions are kept.
func (b *RecordingBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
