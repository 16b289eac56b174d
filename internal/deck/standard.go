package deck

// Composition controls which cards go into a freshly built deck
type Composition struct {
	// TwistHand replaces the four sevens with hand-swap cards
	TwistHand bool
}

// Standard builds the 108-card deck: per color one zero, two each of
// 1-9, two skips, two reverses and two take-twos, plus four
// choose-color and four wild take-four cards.
func Standard(comp Composition) []Card {
	cards := make([]Card, 0, 108)
	for _, color := range []Color{Red, Yellow, Green, Blue} {
		cards = append(cards, NewCard(color, Number, 0))
		for value := 1; value <= 9; value++ {
			for range 2 {
				if value == 7 && comp.TwistHand {
					cards = append(cards, NewCard(color, TwistHand, 0))
					continue
				}
				cards = append(cards, NewCard(color, Number, value))
			}
		}
		for range 2 {
			cards = append(cards,
				NewCard(color, Skip, 0),
				NewCard(color, Reverse, 0),
				NewCard(color, Take, 2),
			)
		}
	}
	for range 4 {
		cards = append(cards,
			NewCard(Wild, ChooseColor, 0),
			NewCard(Black, WildTake, 4),
		)
	}
	return cards
}
