package game

import (
	"time"

	"github.com/mau-cards/maud/internal/deck"
)

// CardData describes one card to clients. Card is the notation accepted
// back by the play operation.
type CardData struct {
	Card     string `json:"card"`
	Color    string `json:"color"`
	Behavior string `json:"behavior"`
	Value    int    `json:"value"`
	Cost     int    `json:"cost"`
}

// DeckData reports the discard top and remaining/used counts
type DeckData struct {
	Top   *CardData `json:"top"`
	Cards int       `json:"cards"`
	Used  int       `json:"used"`
}

// CoverCardsData is the viewer's hand split into legal and non-legal
// subsets, recomputed on every snapshot
type CoverCardsData struct {
	Uncover []CardData `json:"uncover"`
	Cover   []CardData `json:"cover"`
}

// PlayerData describes a player. Cards is set only when the player is
// the requesting viewer; everyone else sees the hand size.
type PlayerData struct {
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	Hand         int             `json:"hand"`
	Cards        *CoverCardsData `json:"cards,omitempty"`
	ShotgunTried int             `json:"shotgun_current"`
}

// BluffData reports the pending bluff window
type BluffData struct {
	Accused  PlayerData `json:"accused"`
	Resolved bool       `json:"resolved"`
}

// GameData is a consistent snapshot of the whole game for one viewer
type GameData struct {
	RoomID      string    `json:"room_id"`
	Rules       []Rule    `json:"rules"`
	OwnerID     string    `json:"owner_id"`
	GameStarted time.Time `json:"game_started"`
	TurnStarted time.Time `json:"turn_started"`

	Players       []PlayerData `json:"players"`
	Winners       []PlayerData `json:"winners"`
	Losers        []PlayerData `json:"losers"`
	CurrentPlayer int          `json:"current_player"`

	Deck        DeckData   `json:"deck"`
	Reverse     bool       `json:"reverse"`
	Bluff       *BluffData `json:"bluff_player,omitempty"`
	TakeCounter int        `json:"take_counter"`
	State       string     `json:"state"`
}

func dumpCard(c deck.Card) CardData {
	return CardData{
		Card:     c.String(),
		Color:    c.Color.String(),
		Behavior: c.Behavior.String(),
		Value:    c.Value,
		Cost:     c.Cost,
	}
}

func dumpCards(cards []deck.Card) []CardData {
	out := make([]CardData, len(cards))
	for i, c := range cards {
		out[i] = dumpCard(c)
	}
	return out
}

func (g *Game) dumpDeckLocked() DeckData {
	if g.deck == nil {
		return DeckData{}
	}
	data := DeckData{Cards: g.deck.Remaining(), Used: g.deck.Used()}
	if top, ok := g.deck.Top(); ok {
		card := dumpCard(top)
		data.Top = &card
	}
	return data
}

// dumpPlayerLocked converts a player for a snapshot. With showCards the
// full hand is included, partitioned against the current top and
// penalty counter.
func (g *Game) dumpPlayerLocked(p *Player, showCards bool) PlayerData {
	if p == nil {
		return PlayerData{}
	}
	data := PlayerData{
		UserID:       p.UserID,
		Name:         p.Name,
		Status:       p.Status.String(),
		Hand:         p.HandSize(),
		ShotgunTried: p.Shotgun.Tried(),
	}
	if showCards {
		var top deck.Card
		if g.deck != nil {
			top, _ = g.deck.Top()
		}
		sorted := p.SortHand(top, g.takeCounter)
		data.Cards = &CoverCardsData{
			Uncover: dumpCards(sorted.Uncover),
			Cover:   dumpCards(sorted.Cover),
		}
	}
	return data
}

func (g *Game) dumpPlayersLocked(players []*Player, viewerID string) []PlayerData {
	out := make([]PlayerData, len(players))
	for i, p := range players {
		out[i] = g.dumpPlayerLocked(p, viewerID != "" && p.UserID == viewerID)
	}
	return out
}

func (g *Game) snapshotLocked(viewerID string) GameData {
	data := GameData{
		RoomID:        g.roomID,
		Rules:         g.rules.Named(),
		OwnerID:       g.owner.UserID,
		GameStarted:   g.gameStart,
		TurnStarted:   g.turnStart,
		Players:       g.dumpPlayersLocked(g.pm.Active(), viewerID),
		Winners:       g.dumpPlayersLocked(g.pm.Winners(), viewerID),
		Losers:        g.dumpPlayersLocked(g.pm.Losers(), viewerID),
		CurrentPlayer: g.pm.CurrentIndex(),
		Deck:          g.dumpDeckLocked(),
		Reverse:       g.pm.Reversed(),
		TakeCounter:   g.takeCounter,
		State:         g.state.String(),
	}
	if g.bluff != nil {
		data.Bluff = &BluffData{
			Accused:  g.dumpPlayerLocked(g.bluff.accused, false),
			Resolved: g.bluff.resolved,
		}
	}
	return data
}

// Snapshot returns a consistent view of the game for the given viewer.
// The viewer sees their own hand in full, split into playable and
// unplayable cards; other hands appear as counts only.
func (g *Game) Snapshot(viewerID string) GameData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked(viewerID)
}

// Record is the archive entry handed to the persistence collaborator
// when a game ends
type Record struct {
	RoomID    string     `json:"room_id"`
	OwnerID   string     `json:"owner_id"`
	GameStart time.Time  `json:"game_start"`
	GameEnd   time.Time  `json:"game_end"`
	Winners   []BaseUser `json:"winners"`
	Losers    []BaseUser `json:"losers"`
}

// Result builds the archive record for a finished game
func (g *Game) Result() Record {
	g.mu.RLock()
	defer g.mu.RUnlock()

	record := Record{
		RoomID:    g.roomID,
		OwnerID:   g.owner.UserID,
		GameStart: g.gameStart,
		GameEnd:   g.gameEnd,
	}
	for _, p := range g.pm.Winners() {
		record.Winners = append(record.Winners, p.User())
	}
	for _, p := range g.pm.Losers() {
		record.Losers = append(record.Losers, p.User())
	}
	return record
}
