package deck

import (
	"fmt"
	"strings"
)

// Color represents a card color
type Color int

const (
	Red Color = iota
	Yellow
	Green
	Blue
	// Wild is the color of the choose-color card before a color is picked
	Wild
	// Black is the color of the wild take card before a color is picked
	Black
)

// String returns the string representation of a color
func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Wild:
		return "wild"
	case Black:
		return "black"
	default:
		return "unknown"
	}
}

// ParseColor parses a color name as used in card notation and requests
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "red", "r":
		return Red, nil
	case "yellow", "y":
		return Yellow, nil
	case "green", "g":
		return Green, nil
	case "blue", "b":
		return Blue, nil
	case "wild", "w":
		return Wild, nil
	case "black", "k":
		return Black, nil
	default:
		return 0, fmt.Errorf("unknown color %q", s)
	}
}

// letter returns the single-letter color prefix used in card notation
func (c Color) letter() string {
	switch c {
	case Red:
		return "r"
	case Yellow:
		return "y"
	case Green:
		return "g"
	case Blue:
		return "b"
	case Wild:
		return "w"
	case Black:
		return "k"
	default:
		return "?"
	}
}

// Behavior identifies what a card does when played. The set is closed:
// every engine operation dispatches on it exhaustively.
type Behavior int

const (
	// Number has no side effect beyond advancing the turn
	Number Behavior = iota
	// Skip passes over the next player
	Skip
	// Reverse flips the direction of play
	Reverse
	// Take forces the next player to draw Value cards unless they stack
	Take
	// WildTake is a black Take that also picks a color and opens a bluff window
	WildTake
	// ChooseColor lets the player pick the active color
	ChooseColor
	// TwistHand swaps the player's hand with a chosen opponent's
	TwistHand
)

// String returns the string representation of a behavior
func (b Behavior) String() string {
	switch b {
	case Number:
		return "number"
	case Skip:
		return "skip"
	case Reverse:
		return "reverse"
	case Take:
		return "take"
	case WildTake:
		return "wild_take"
	case ChooseColor:
		return "choose_color"
	case TwistHand:
		return "twist_hand"
	default:
		return "unknown"
	}
}

// Card is an immutable card value. Identity is by value, not reference:
// two cards with the same color, behavior and value are the same card.
type Card struct {
	Color    Color
	Behavior Behavior
	// Value is the printed number for number cards and the draw count
	// for take cards
	Value int
	// Cost is the scoring weight of the card
	Cost int
}

// NewCard creates a card with the standard cost for its behavior
func NewCard(color Color, behavior Behavior, value int) Card {
	return Card{Color: color, Behavior: behavior, Value: value, Cost: costOf(behavior, value)}
}

func costOf(behavior Behavior, value int) int {
	switch behavior {
	case Number:
		return value
	case WildTake, ChooseColor:
		return 50
	default:
		return 20
	}
}

// String returns the card notation, e.g. "r7", "gskip", "btake2", "ktake4"
func (c Card) String() string {
	switch c.Behavior {
	case Number:
		return fmt.Sprintf("%s%d", c.Color.letter(), c.Value)
	case Take, WildTake:
		return fmt.Sprintf("%stake%d", c.Color.letter(), c.Value)
	default:
		return c.Color.letter() + c.Behavior.String()
	}
}

// ParseCard parses card notation produced by String
func ParseCard(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card notation %q", s)
	}
	color, err := ParseColor(s[:1])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card notation %q: %w", s, err)
	}

	rest := s[1:]
	switch {
	case rest == "skip":
		return NewCard(color, Skip, 0), nil
	case rest == "reverse":
		return NewCard(color, Reverse, 0), nil
	case rest == "choose_color":
		return NewCard(color, ChooseColor, 0), nil
	case rest == "twist_hand":
		return NewCard(color, TwistHand, 0), nil
	case strings.HasPrefix(rest, "take"):
		var n int
		if _, err := fmt.Sscanf(rest, "take%d", &n); err != nil || n <= 0 {
			return Card{}, fmt.Errorf("invalid take card notation %q", s)
		}
		behavior := Take
		if color == Black || color == Wild {
			behavior = WildTake
		}
		return NewCard(color, behavior, n), nil
	default:
		var n int
		if _, err := fmt.Sscanf(rest, "%d", &n); err != nil || n < 0 || n > 9 {
			return Card{}, fmt.Errorf("invalid card notation %q", s)
		}
		return NewCard(color, Number, n), nil
	}
}

// IsWild returns true for cards playable on any color
func (c Card) IsWild() bool {
	return c.Color == Wild || c.Color == Black
}

// IsStackable returns true for cards that escalate a pending penalty
// instead of canceling it
func (c Card) IsStackable() bool {
	return c.Behavior == Take || c.Behavior == WildTake
}

// Matches reports whether the card may be played on top with no penalty
// pending. A wild card matches anything, and a top card whose color was
// never chosen matches anything.
func (c Card) Matches(top Card) bool {
	if c.IsWild() || top.IsWild() {
		return true
	}
	if c.Color == top.Color {
		return true
	}
	if c.Behavior == Number {
		return top.Behavior == Number && c.Value == top.Value
	}
	return c.Behavior == top.Behavior
}

// Playable reports whether the card is legal against top given the
// pending forced-draw counter. While a penalty is pending only stacking
// cards are legal; they escalate the counter rather than cancel it.
func (c Card) Playable(top Card, pendingTake int) bool {
	if pendingTake > 0 {
		return c.IsStackable()
	}
	return c.Matches(top)
}

// WithColor returns a copy of the card recolored, used when a wild
// card's color is chosen
func (c Card) WithColor(color Color) Card {
	c.Color = color
	return c
}
