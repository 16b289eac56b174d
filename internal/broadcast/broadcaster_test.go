package broadcast

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mau-cards/maud/internal/game"
)

func testBroadcaster() *Broadcaster {
	return New(zerolog.Nop())
}

func TestPublishReachesAllRoomSubscribers(t *testing.T) {
	t.Parallel()
	b := testBroadcaster()

	s1 := b.Subscribe("room")
	s2 := b.Subscribe("room")
	other := b.Subscribe("elsewhere")

	b.Publish("room", game.Event{Type: game.EventGameStart})

	ev := <-s1.C
	assert.Equal(t, game.EventGameStart, ev.Type)
	ev = <-s2.C
	assert.Equal(t, game.EventGameStart, ev.Type)

	select {
	case ev := <-other.C:
		t.Fatalf("subscriber of another room received %v", ev.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := testBroadcaster()

	sub := b.Subscribe("room")
	require.Equal(t, 1, b.SubscriberCount("room"))

	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // idempotent

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, b.SubscriberCount("room"))
}

func TestSlowSubscriberIsDroppedWithoutBlocking(t *testing.T) {
	t.Parallel()
	b := testBroadcaster()

	slow := b.Subscribe("room")
	live := b.Subscribe("room")

	// Saturate the laggard's buffer, then publish once more. The
	// publish must not block and must evict only the laggard.
	for i := 0; i < subscriberBuffer; i++ {
		slow.ch <- game.Event{Type: game.EventCardPlayed}
	}
	b.Publish("room", game.Event{Type: game.EventCardPlayed})

	assert.Equal(t, 1, b.SubscriberCount("room"))

	ev := <-live.C
	assert.Equal(t, game.EventCardPlayed, ev.Type)

	// Drain the dropped subscriber; its channel ends closed.
	n := 0
	for range slow.C {
		n++
	}
	assert.Equal(t, subscriberBuffer, n)
}

func TestCloseRoomDisconnectsEveryone(t *testing.T) {
	t.Parallel()
	b := testBroadcaster()

	s1 := b.Subscribe("room")
	s2 := b.Subscribe("room")

	b.CloseRoom("room")

	_, ok := <-s1.C
	assert.False(t, ok)
	_, ok = <-s2.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount("room"))

	// Publishing into a closed room is a no-op.
	b.Publish("room", game.Event{Type: game.EventGameEnd})
}

func TestSinkPublishesIntoRoom(t *testing.T) {
	t.Parallel()
	b := testBroadcaster()

	sub := b.Subscribe("room")
	sink := b.Sink("room")
	sink.Push(game.Event{Type: game.EventTurnPassed})

	ev := <-sub.C
	assert.Equal(t, game.EventTurnPassed, ev.Type)
}
