package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrExhausted is returned when a draw is requested and both piles are
// empty. With a standard deck this cannot happen and indicates a broken
// game invariant.
var ErrExhausted = errors.New("deck exhausted: draw and discard piles are empty")

// Deck holds the draw and discard piles of a game. The top of each pile
// is the end of its slice. The total number of cards across both piles
// and all hands is constant for the life of a game.
type Deck struct {
	draw    []Card
	discard []Card
	rng     *rand.Rand
}

// New creates a deck with the given cards forming the draw pile
func New(rng *rand.Rand, cards []Card) *Deck {
	draw := make([]Card, len(cards))
	copy(draw, cards)
	return &Deck{
		draw:    draw,
		discard: make([]Card, 0, len(cards)),
		rng:     rng,
	}
}

// Shuffle randomizes the draw pile
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.draw), func(i, j int) {
		d.draw[i], d.draw[j] = d.draw[j], d.draw[i]
	})
}

// Draw pops n cards from the draw pile. When the draw pile empties the
// discard pile minus its top card is shuffled into a new draw pile.
// Fails with ErrExhausted only if both piles are empty.
func (d *Deck) Draw(n int) ([]Card, error) {
	cards := make([]Card, 0, n)
	for range n {
		if len(d.draw) == 0 {
			d.reshuffle()
		}
		if len(d.draw) == 0 {
			return cards, ErrExhausted
		}
		cards = append(cards, d.draw[len(d.draw)-1])
		d.draw = d.draw[:len(d.draw)-1]
	}
	return cards, nil
}

// reshuffle moves all but the top discard card into the draw pile
func (d *Deck) reshuffle() {
	if len(d.discard) <= 1 {
		return
	}
	top := d.discard[len(d.discard)-1]
	d.draw = append(d.draw, d.discard[:len(d.discard)-1]...)
	d.discard = d.discard[:0]
	d.discard = append(d.discard, top)
	d.Shuffle()
}

// Play puts a card on top of the discard pile
func (d *Deck) Play(c Card) {
	d.discard = append(d.discard, c)
}

// Top returns the most recently played card, if any
func (d *Deck) Top() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// SetTopColor recolors the discard top, used when the color of a wild
// card is chosen. Returns false if the discard pile is empty.
func (d *Deck) SetTopColor(color Color) bool {
	if len(d.discard) == 0 {
		return false
	}
	d.discard[len(d.discard)-1] = d.discard[len(d.discard)-1].WithColor(color)
	return true
}

// Remaining returns the number of cards left to draw
func (d *Deck) Remaining() int {
	return len(d.draw)
}

// Used returns the size of the discard pile
func (d *Deck) Used() int {
	return len(d.discard)
}
