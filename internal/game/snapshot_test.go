package game

import (
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mau-cards/maud/internal/deck"
)

func TestSnapshotHidesOtherHands(t *testing.T) {
	t.Parallel()
	g, _, _ := startedGame(t,
		[][]deck.Card{cards("g1", "b7"), cards("b1", "b2")},
		card("g5"), nil)

	snap := g.Snapshot("u1")
	require.Len(t, snap.Players, 2)

	viewer := snap.Players[0]
	require.NotNil(t, viewer.Cards)
	assert.Equal(t, 2, viewer.Hand)
	// g1 matches the g5 top, b7 does not.
	require.Len(t, viewer.Cards.Uncover, 1)
	assert.Equal(t, "g1", viewer.Cards.Uncover[0].Card)
	require.Len(t, viewer.Cards.Cover, 1)
	assert.Equal(t, "b7", viewer.Cards.Cover[0].Card)

	other := snap.Players[1]
	assert.Nil(t, other.Cards)
	assert.Equal(t, 2, other.Hand)
}

func TestSnapshotPartitionRespectsPenalty(t *testing.T) {
	t.Parallel()
	g, players, _ := startedGame(t,
		[][]deck.Card{cards("gtake2", "r1"), cards("ytake2", "g9")},
		card("g5"), nil)

	require.NoError(t, g.ProcessTurn(players[0], card("gtake2")))

	snap := g.Snapshot("u2")
	victim := snap.Players[1]
	require.NotNil(t, victim.Cards)
	// Under a pending penalty only stackable cards are playable, even
	// though g9 would normally match the gtake2 top.
	require.Len(t, victim.Cards.Uncover, 1)
	assert.Equal(t, "ytake2", victim.Cards.Uncover[0].Card)
}

func TestSnapshotReportsGameAndDeckState(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	g, players, _ := startedGame(t,
		[][]deck.Card{cards("gtake2", "r1"), cards("b1", "b2")},
		card("g5"), nil,
		WithClock(clock))

	require.NoError(t, g.ProcessTurn(players[0], card("gtake2")))

	snap := g.Snapshot("")
	assert.Equal(t, "room-1", snap.RoomID)
	assert.Equal(t, "u1", snap.OwnerID)
	assert.Equal(t, "play", snap.State)
	assert.Equal(t, 2, snap.TakeCounter)
	assert.Equal(t, 1, snap.CurrentPlayer)
	assert.False(t, snap.Reverse)
	assert.Equal(t, clock.Now(), snap.GameStarted)
	assert.Equal(t, clock.Now(), snap.TurnStarted)
	assert.Equal(t, "gtake2", snap.Deck.Top.Card)
	assert.Equal(t, 2, snap.Deck.Used)

	names := make(map[string]bool)
	for _, rule := range snap.Rules {
		names[rule.Name] = rule.Enabled
	}
	assert.True(t, names["shotgun"])
	assert.False(t, names["twist_hand"])
}

func TestSnapshotExposesBluffWindow(t *testing.T) {
	t.Parallel()
	g, players, _ := startedGame(t,
		[][]deck.Card{cards("ktake4", "g1"), cards("b1", "b2")},
		card("g5"), cards("y1", "y2", "y3", "y4"))

	require.NoError(t, g.ProcessTurn(players[0], card("ktake4")))
	require.NoError(t, g.ChooseColor(players[0], deck.Blue))

	snap := g.Snapshot("")
	require.NotNil(t, snap.Bluff)
	assert.Equal(t, "u1", snap.Bluff.Accused.UserID)
	assert.False(t, snap.Bluff.Resolved)
	assert.Nil(t, snap.Bluff.Accused.Cards)
}
