package eventbus

import "testing"

type orderEvent struct{ ID string }

func TestTypedBusDelivers(t *testing.T) {
	bus := NewTyped[orderEvent]()
	ch := bus.Subscribe()
	bus.Publish(orderEvent{ID: "o1"})
	if ev := <-ch; ev.ID != "o1" {
		t.Fatalf("unexpected event %#v", ev)
	}
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTypedWithBuffer[orderEvent](1)
	ch := bus.Subscribe()
	bus.Publish(orderEvent{ID: "a"})
	bus.Publish(orderEvent{ID: "b"})
	if bus.Dropped() != 1 {
		t.Fatalf("expected 1 dropped got %d", bus.Dropped())
	}
	if ev := <-ch; ev.ID != "a" {
		t.Fatalf("expected first event kept, got %s", ev.ID)
	}
	bus.Close()
}
