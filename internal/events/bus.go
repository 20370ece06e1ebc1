// Package events provides the in-process event bus connecting apply runs
// to the watch daemon's metrics.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(PatchAppliedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case PatchAppliedEvent:
		event.Publish(b.dispatcher, e)
	case FallbackAppliedEvent:
		event.Publish(b.dispatcher, e)
	case ServiceRestartedEvent:
		event.Publish(b.dispatcher, e)
	case ApplyFailedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e PatchAppliedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PatchAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FallbackAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ServiceRestartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ApplyFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
