package game

// Rules are the named boolean toggles a room owner picks before a game
type Rules struct {
	// Shotgun enables the revolver: a player facing a penalty may
	// shoot instead of drawing
	Shotgun bool
	// TwistHand puts hand-swap cards into the deck
	TwistHand bool
}

// Rule is a single named toggle as shown to clients
type Rule struct {
	Name    string `json:"name"`
	Enabled bool   `json:"status"`
}

// Named lists the toggles in a stable order
func (r Rules) Named() []Rule {
	return []Rule{
		{Name: "shotgun", Enabled: r.Shotgun},
		{Name: "twist_hand", Enabled: r.TwistHand},
	}
}

// DefaultRules enables the revolver and leaves hand twisting off
func DefaultRules() Rules {
	return Rules{Shotgun: true}
}
