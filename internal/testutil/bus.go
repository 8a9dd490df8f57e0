package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/HerbHall/kioskwatch/pkg/plugin"
)

// Compile-time interface check.
var _ plugin.EventBus = (*MockBus)(nil)

// MockBus is a thread-safe in-memory event bus that records all published
// events for later inspection.
type MockBus struct {
	mu     sync.Mutex
	events []plugin.Event
	notify chan struct{}
}

// NewMockBus returns a new MockBus.
func NewMockBus() *MockBus {
	return &MockBus{notify: make(chan struct{}, 1)}
}

// Publish records an event synchronously.
func (b *MockBus) Publish(_ context.Context, event plugin.Event) error {
	b.record(event)
	return nil
}

// PublishAsync records an event (same as Publish in tests).
func (b *MockBus) PublishAsync(_ context.Context, event plugin.Event) {
	b.record(event)
}

// Subscribe is a no-op that returns a no-op unsubscribe function.
func (b *MockBus) Subscribe(_ string, _ plugin.EventHandler) func() {
	return func() {}
}

// SubscribeAll is a no-op that returns a no-op unsubscribe function.
func (b *MockBus) SubscribeAll(_ plugin.EventHandler) func() {
	return func() {}
}

// Events returns a copy of all recorded events.
func (b *MockBus) Events() []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]plugin.Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventsFor returns the recorded events published on topic.
func (b *MockBus) EventsFor(topic string) []plugin.Event {
	var out []plugin.Event
	for _, e := range b.Events() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (b *MockBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// WaitFor blocks until at least n events are recorded or timeout elapses.
// It reports whether n events were seen.
func (b *MockBus) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if b.Len() >= n {
			return true
		}
		select {
		case <-b.notify:
		case <-deadline:
			return b.Len() >= n
		}
	}
}

// Reset clears all recorded events.
func (b *MockBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

func (b *MockBus) record(event plugin.Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
