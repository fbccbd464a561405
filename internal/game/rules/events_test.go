package rules

import "testing"

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	bus := NewEventBus()
	var got []Event
	handle := bus.Subscribe(func(evt Event) { got = append(got, evt) })
	if handle < 0 {
		t.Fatalf("expected valid handle, got %d", handle)
	}

	bus.Publish(NewEvent(EventCardPlayed, "g1", "p1", "c1"))
	bus.Publish(NewEvent(EventTurnStarted, "g1", "p2", ""))

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != EventCardPlayed || got[1].Type != EventTurnStarted {
		t.Errorf("events out of order: %v, %v", got[0].Type, got[1].Type)
	}
}

func TestSubscribeTypedFilters(t *testing.T) {
	bus := NewEventBus()
	var battles, all int
	bus.SubscribeTyped(EventBattleResult, func(Event) { battles++ })
	bus.Subscribe(func(Event) { all++ })

	bus.Publish(NewEvent(EventBattleResult, "g1", "", ""))
	bus.Publish(NewEvent(EventCardPlayed, "g1", "p1", ""))
	bus.Publish(NewEvent(EventBattleResult, "g1", "", ""))

	if battles != 2 {
		t.Errorf("typed listener saw %d events, want 2", battles)
	}
	if all != 3 {
		t.Errorf("untyped listener saw %d events, want 3", all)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	var plain, typed int
	h1 := bus.Subscribe(func(Event) { plain++ })
	h2 := bus.SubscribeTyped(EventGameOver, func(Event) { typed++ })

	bus.Publish(NewEvent(EventGameOver, "g1", "", ""))
	bus.Unsubscribe(h1)
	bus.Unsubscribe(h2)
	bus.Publish(NewEvent(EventGameOver, "g1", "", ""))

	if plain != 1 || typed != 1 {
		t.Errorf("listeners fired after unsubscribe: plain=%d typed=%d", plain, typed)
	}
}

func TestNilListenersRejected(t *testing.T) {
	bus := NewEventBus()
	if h := bus.Subscribe(nil); h != -1 {
		t.Errorf("nil listener got handle %d", h)
	}
	if h := bus.SubscribeTyped(EventError, nil); h != -1 {
		t.Errorf("nil typed listener got handle %d", h)
	}
}

func TestPublishBatchKeepsOrder(t *testing.T) {
	bus := NewEventBus()
	var positions []int
	bus.Subscribe(func(evt Event) { positions = append(positions, evt.Position) })

	batch := make([]Event, 0, 4)
	for i := 0; i < 4; i++ {
		evt := NewEvent(EventCardPlayed, "g1", "p1", "")
		evt.Position = i
		batch = append(batch, evt)
	}
	bus.PublishBatch(batch)

	for i, pos := range positions {
		if pos != i {
			t.Fatalf("batch delivered out of order: %v", positions)
		}
	}
}

func TestNewEventDefaults(t *testing.T) {
	evt := NewEvent(EventCardPlayed, "g1", "p1", "c1")
	if evt.ID == "" {
		t.Error("event has no ID")
	}
	if evt.Position != -1 {
		t.Errorf("expected position -1 when unset, got %d", evt.Position)
	}
	if evt.Metadata == nil {
		t.Error("metadata map not initialized")
	}
	if evt.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	amt := NewEventWithAmount(EventPointsAwarded, "g1", "p1", "", 7)
	if amt.Amount != 7 {
		t.Errorf("amount = %d, want 7", amt.Amount)
	}
}
