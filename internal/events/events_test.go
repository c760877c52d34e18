package events

import (
	"reflect"
	"testing"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(nil)
	var got []string
	bus.Subscribe(func(e Event) { got = append(got, "a:"+string(e.Kind)) })
	bus.Subscribe(func(e Event) { got = append(got, "b:"+string(e.Kind)) })

	bus.Publish(Event{Kind: WriteStarted})

	want := []string{"a:write_started", "b:write_started"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })
	bus.Publish(Event{Kind: DeleteStarted})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Kind: DeleteFinished})

	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
}

func TestPublishSetsTimestampAndCounts(t *testing.T) {
	bus := NewBus(nil)
	var seen Event
	bus.Subscribe(func(e Event) { seen = e })
	bus.Publish(Event{Kind: DeleteFinished, Op: OpPurge, Success: 3, Failed: 1})

	if seen.At.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
	if seen.Op != OpPurge || seen.Success != 3 || seen.Failed != 1 {
		t.Fatalf("unexpected event: %+v", seen)
	}
}

func TestHandlerPanicDoesNotStopOthers(t *testing.T) {
	bus := NewBus(nil)
	delivered := false
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { delivered = true })

	bus.Publish(Event{Kind: WriteFinished})

	if !delivered {
		t.Fatal("expected second handler to run after first panicked")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Kind: WriteStarted})
	bus.Subscribe(func(Event) {})()
}
