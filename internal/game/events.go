package game

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents a game event type with type safety
type EventType string

// Event types emitted by the engine, at most one per mutating operation
const (
	EventGameStart     EventType = "game_start"
	EventGameEnd       EventType = "game_end"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventCardPlayed    EventType = "card_played"
	EventCardsTaken    EventType = "cards_taken"
	EventTurnPassed    EventType = "turn_passed"
	EventPlayerSkipped EventType = "player_skipped"
	EventShotgunShot   EventType = "shotgun_shot"
	EventBluffResolved EventType = "bluff_resolved"
	EventColorChosen   EventType = "color_chosen"
	EventHandsTwisted  EventType = "hands_twisted"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is a discrete game event for real-time fan-out. It carries the
// acting player, a free-form payload and the post-event snapshot, so
// subscribers never need to query the engine to stay current.
type Event struct {
	ID        string     `json:"id"`
	Type      EventType  `json:"event"`
	Player    PlayerData `json:"player"`
	Data      string     `json:"data"`
	Game      GameData   `json:"game"`
	Timestamp time.Time  `json:"timestamp"`
}

// Sink receives engine events. Push must not block: delivery happens
// after the engine lock is released and is never awaited by the
// mutating call path.
type Sink interface {
	Push(event Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Event)

// Push calls the wrapped function
func (f SinkFunc) Push(event Event) { f(event) }

// NopSink discards all events
type NopSink struct{}

// Push discards the event
func (NopSink) Push(Event) {}

func (g *Game) newEventLocked(eventType EventType, actor *Player, data string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Player:    g.dumpPlayerLocked(actor, false),
		Data:      data,
		Game:      g.snapshotLocked(""),
		Timestamp: g.clock.Now(),
	}
}

// publish hands the event to the sink outside the engine lock
func (g *Game) publish(event *Event) {
	if event == nil {
		return
	}
	g.sink.Push(*event)
}
