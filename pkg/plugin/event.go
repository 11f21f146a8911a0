package plugin

import (
	"context"
	"time"
)

// Event is a message published on the core event bus.
type Event struct {
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EventHandler receives events delivered by the bus.
type EventHandler func(ctx context.Context, event Event)

// EventBus is the in-process publish/subscribe channel shared by modules.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event)
	Subscribe(topic string, handler EventHandler) (unsubscribe func())
	SubscribeAll(handler EventHandler) (unsubscribe func())
}

// Subscription pairs a topic with a handler. An empty Topic subscribes to
// every event.
type Subscription struct {
	Topic   string
	Handler EventHandler
}
