package eventbus

// Event represents an arbitrary event passed on the bus.
type Event any

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the untyped EventBus used by the dispatch manager. Subscribers switch
// on the concrete event type.
type Bus struct {
	*TypedBus[Event]
}

// New creates a new Bus.
func New() *Bus { return &Bus{TypedBus: NewTyped[Event]()} }
