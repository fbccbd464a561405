package rules

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a game event.
type EventType string

const (
	// Match/round flow events
	EventGameStateChanged EventType = "GAME_STATE_CHANGED"
	EventRoundStarted     EventType = "ROUND_STARTED"
	EventRoundEnded       EventType = "ROUND_ENDED"
	EventTurnStarted      EventType = "TURN_STARTED"
	EventPhaseChanged     EventType = "PHASE_CHANGED"
	EventGameOver         EventType = "GAME_OVER"

	// Card events
	EventCardDealt    EventType = "CARD_DEALT"
	EventCardSelected EventType = "CARD_SELECTED"
	EventCardPlayed   EventType = "CARD_PLAYED"
	EventCardRevealed EventType = "CARD_REVEALED"
	EventPlayCanceled EventType = "PLAY_CANCELED"

	// Battle events
	EventBattleStart   EventType = "BATTLE_START"
	EventBattleResult  EventType = "BATTLE_RESULT"
	EventBattleEnd     EventType = "BATTLE_END"
	EventBattleSkipped EventType = "BATTLE_SKIPPED" // timed-out battle, resolution continued

	// Scoring events
	EventScoreUpdate         EventType = "SCORE_UPDATE"
	EventPointsAwarded       EventType = "POINTS_AWARDED"
	EventPointsDeducted      EventType = "POINTS_DEDUCTED"
	EventAchievementUnlocked EventType = "ACHIEVEMENT_UNLOCKED"

	// Challenge events
	EventChallengeWindowOpen   EventType = "CHALLENGE_WINDOW_OPEN"
	EventChallengeWindowClosed EventType = "CHALLENGE_WINDOW_CLOSED"
	EventChallengeMade         EventType = "CHALLENGE_MADE"

	// Failure surface
	EventError EventType = "ERROR"
)

// Event represents a state change that listeners may react to. Payloads are
// plain structured data; there is no binary framing.
type Event struct {
	Type      EventType
	ID        string // unique event ID
	GameID    string
	PlayerID  string // acting player, when one applies
	TargetID  string // card or player the event is about
	Position  int    // grid position, -1 when none applies
	Amount    int    // points, counts
	Data      string // additional string data (claimed type, reason, ...)
	Timestamp time.Time
	Metadata  map[string]string
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with
// type filtering. Delivery is ordered and fire-and-forget: listeners see
// events in publish order and publisher never learns about listener state.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	listener := TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	}
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], listener)
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}

	if typedListeners, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typedListeners {
			listener.Callback(event)
		}
	}
}

// PublishBatch publishes multiple events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, gameID, playerID, targetID string) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.NewString(),
		GameID:    gameID,
		PlayerID:  playerID,
		TargetID:  targetID,
		Position:  -1,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, gameID, playerID, targetID string, amount int) Event {
	evt := NewEvent(eventType, gameID, playerID, targetID)
	evt.Amount = amount
	return evt
}
