package plugin

import (
	"context"
	"time"
)

// Event is a message carried on the in-process bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// EventHandler processes a single event.
type EventHandler func(ctx context.Context, event Event)

// EventBus decouples producers (registry, scanner) from consumers (hub).
type EventBus interface {
	// Publish delivers the event synchronously to every matching handler.
	Publish(ctx context.Context, event Event) error
	// PublishAsync delivers the event on a separate goroutine.
	PublishAsync(ctx context.Context, event Event)
	// Subscribe registers a handler for one topic and returns an unsubscribe func.
	Subscribe(topic string, handler EventHandler) func()
	// SubscribeAll registers a handler for every topic.
	SubscribeAll(handler EventHandler) func()
}
