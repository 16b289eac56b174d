// Package broadcast fans game events out to room subscribers.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mau-cards/maud/internal/game"
)

// subscriberBuffer is the number of events a subscriber may lag behind
// before it is dropped.
const subscriberBuffer = 256

// Subscriber receives the event stream of a single room. Events arrive
// on C until the subscriber is unsubscribed or falls too far behind, at
// which point C is closed.
type Subscriber struct {
	C      <-chan game.Event
	roomID string
	ch     chan game.Event
	once   sync.Once
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Broadcaster routes events to the subscribers of their room. Delivery
// is non-blocking: a subscriber whose buffer is full is closed and
// removed so one slow consumer cannot stall the rest of the room.
type Broadcaster struct {
	logger zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

func New(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With().Str("component", "broadcast").Logger(),
		rooms:  make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new listener for the room's events.
func (b *Broadcaster) Subscribe(roomID string) *Subscriber {
	ch := make(chan game.Event, subscriberBuffer)
	sub := &Subscriber{C: ch, roomID: roomID, ch: ch}

	b.mu.Lock()
	subs, ok := b.rooms[roomID]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		b.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug().Str("room_id", roomID).Msg("subscriber added")
	return sub
}

// Unsubscribe removes the listener and closes its channel. Safe to call
// more than once.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	b.removeLocked(sub)
	b.mu.Unlock()
	sub.close()
}

func (b *Broadcaster) removeLocked(sub *Subscriber) {
	subs, ok := b.rooms[sub.roomID]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.rooms, sub.roomID)
	}
}

// Publish delivers the event to every subscriber of its room.
func (b *Broadcaster) Publish(roomID string, ev game.Event) {
	var dropped []*Subscriber

	b.mu.RLock()
	for sub := range b.rooms[roomID] {
		select {
		case sub.ch <- ev:
		default:
			dropped = append(dropped, sub)
		}
	}
	b.mu.RUnlock()

	if len(dropped) == 0 {
		return
	}
	b.mu.Lock()
	for _, sub := range dropped {
		b.removeLocked(sub)
	}
	b.mu.Unlock()
	for _, sub := range dropped {
		sub.close()
		b.logger.Warn().Str("room_id", roomID).Msg("subscriber buffer full, dropped")
	}
}

// CloseRoom disconnects every subscriber of the room. Used when a game
// is removed.
func (b *Broadcaster) CloseRoom(roomID string) {
	b.mu.Lock()
	subs := b.rooms[roomID]
	delete(b.rooms, roomID)
	b.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
}

// SubscriberCount reports how many listeners the room currently has.
func (b *Broadcaster) SubscriberCount(roomID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomID])
}

// Sink returns a game.Sink that publishes into the given room. It is
// handed to the engine so events flow out without the engine knowing
// about subscribers.
func (b *Broadcaster) Sink(roomID string) game.Sink {
	return game.SinkFunc(func(ev game.Event) {
		b.Publish(roomID, ev)
	})
}
