package game

import (
	"github.com/mau-cards/maud/internal/deck"
)

// Status tracks how a player left the active ring
type Status int

const (
	// StatusActive players hold cards and take turns
	StatusActive Status = iota
	// StatusLeft players quit or were kicked
	StatusLeft
	// StatusEliminated players lost a revolver episode
	StatusEliminated
	// StatusWon players emptied their hand
	StatusWon
	// StatusLost players were still holding cards when the game ended
	StatusLost
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusLeft:
		return "left"
	case StatusEliminated:
		return "eliminated"
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	default:
		return "unknown"
	}
}

// BaseUser identifies an authenticated user outside the engine
type BaseUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is a user's seat in one game. The hand is owned exclusively by
// its player and only mutated under the game lock.
type Player struct {
	UserID  string
	Name    string
	Status  Status
	Shotgun *Shotgun

	hand []deck.Card
}

func newPlayer(user BaseUser, cylinderSize int) *Player {
	return &Player{
		UserID:  user.ID,
		Name:    user.Name,
		Status:  StatusActive,
		Shotgun: NewShotgun(cylinderSize),
	}
}

// User returns the player's identity
func (p *Player) User() BaseUser {
	return BaseUser{ID: p.UserID, Name: p.Name}
}

// HandSize returns the number of cards held
func (p *Player) HandSize() int {
	return len(p.hand)
}

// Hand returns a copy of the player's cards
func (p *Player) Hand() []deck.Card {
	out := make([]deck.Card, len(p.hand))
	copy(out, p.hand)
	return out
}

// SortedCards is the derived playable/non-playable partition of a hand.
// It is recomputed on every read and never stored.
type SortedCards struct {
	// Uncover cards are currently legal to play
	Uncover []deck.Card
	// Cover cards are not
	Cover []deck.Card
}

// SortHand partitions the hand against the discard top and the pending
// penalty counter
func (p *Player) SortHand(top deck.Card, pendingTake int) SortedCards {
	sorted := SortedCards{
		Uncover: make([]deck.Card, 0, len(p.hand)),
		Cover:   make([]deck.Card, 0, len(p.hand)),
	}
	for _, c := range p.hand {
		if c.Playable(top, pendingTake) {
			sorted.Uncover = append(sorted.Uncover, c)
		} else {
			sorted.Cover = append(sorted.Cover, c)
		}
	}
	return sorted
}

// addCards appends drawn cards to the hand
func (p *Player) addCards(cards []deck.Card) {
	p.hand = append(p.hand, cards...)
}

// removeCard takes one card matching c out of the hand, by value.
// Returns false if the player does not hold such a card.
func (p *Player) removeCard(c deck.Card) bool {
	for i, held := range p.hand {
		if held == c {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			return true
		}
	}
	return false
}

// hasColorMatch reports whether any non-wild card in the hand matches
// the given top card. Used to decide whether a wild take was bluffed.
func (p *Player) hasColorMatch(top deck.Card) bool {
	for _, held := range p.hand {
		if !held.IsWild() && held.Matches(top) {
			return true
		}
	}
	return false
}

// HandCost sums the scoring weight of the held cards
func (p *Player) HandCost() int {
	cost := 0
	for _, c := range p.hand {
		cost += c.Cost
	}
	return cost
}
