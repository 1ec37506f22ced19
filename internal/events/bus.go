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

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(StreamStatusChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event routes on the static type, so dispatch per concrete type
	switch e := ev.(type) {
	case StreamStatusChangedEvent:
		event.Publish(b.dispatcher, e)
	case LaunchConfigChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case StreamProgressEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter and
// returns an unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e StreamStatusChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StreamStatusChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LaunchConfigChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
