package game

// PlayerManager keeps the ordered ring of active players, the direction
// of play and the winners/losers bookkeeping. The current index always
// points at an active player unless the ring is empty: players leave
// the ring the moment they win, lose, leave or are eliminated.
type PlayerManager struct {
	players   []*Player
	cp        int
	direction int

	winners []*Player
	losers  []*Player
}

// NewPlayerManager creates an empty ring with forward direction
func NewPlayerManager() *PlayerManager {
	return &PlayerManager{direction: 1}
}

// Add appends a player to the end of the ring
func (pm *PlayerManager) Add(p *Player) {
	pm.players = append(pm.players, p)
}

// ByUserID finds an active player by user id
func (pm *PlayerManager) ByUserID(userID string) *Player {
	for _, p := range pm.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Current returns the player whose turn it is, or nil for an empty ring
func (pm *PlayerManager) Current() *Player {
	if len(pm.players) == 0 {
		return nil
	}
	return pm.players[pm.cp]
}

// Next advances the current index one step in the direction of play
func (pm *PlayerManager) Next() *Player {
	if len(pm.players) == 0 {
		return nil
	}
	pm.cp = pm.wrap(pm.cp + pm.direction)
	return pm.players[pm.cp]
}

// SetCurrent transfers the turn to p directly, used when a revolver
// survivor becomes the next to decide
func (pm *PlayerManager) SetCurrent(p *Player) error {
	for i, other := range pm.players {
		if other == p {
			pm.cp = i
			return nil
		}
	}
	return ErrPlayerNotFound
}

// Reverse flips the direction of play
func (pm *PlayerManager) Reverse() {
	pm.direction = -pm.direction
}

// Reversed reports whether play runs against seating order
func (pm *PlayerManager) Reversed() bool {
	return pm.direction < 0
}

// MoveToWinners removes p from the ring into the finish order
func (pm *PlayerManager) MoveToWinners(p *Player) {
	if !pm.remove(p) {
		return
	}
	p.Status = StatusWon
	pm.winners = append(pm.winners, p)
}

// MoveToLosers removes p from the ring into the elimination order. The
// caller sets the player's status beforehand to record why they lost.
func (pm *PlayerManager) MoveToLosers(p *Player) {
	if !pm.remove(p) {
		return
	}
	if p.Status == StatusActive {
		p.Status = StatusLeft
	}
	pm.losers = append(pm.losers, p)
}

// Drop removes p from the ring without any bookkeeping, used before the
// game starts
func (pm *PlayerManager) Drop(p *Player) {
	pm.remove(p)
}

// remove deletes p from the ring, keeping the current index on the
// player who is next to act in the direction of play
func (pm *PlayerManager) remove(p *Player) bool {
	idx := -1
	for i, other := range pm.players {
		if other == p {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	pm.players = append(pm.players[:idx], pm.players[idx+1:]...)
	if idx < pm.cp {
		pm.cp--
	} else if idx == pm.cp && pm.direction < 0 {
		// Deleting the current seat: with forward play the next player
		// slides into the vacated index, with reverse play it sits one
		// position back.
		pm.cp--
	}
	if len(pm.players) > 0 {
		pm.cp = pm.wrap(pm.cp)
	} else {
		pm.cp = 0
	}
	return true
}

func (pm *PlayerManager) wrap(i int) int {
	n := len(pm.players)
	return ((i % n) + n) % n
}

// CurrentIndex returns the index of the current player in the ring
func (pm *PlayerManager) CurrentIndex() int {
	return pm.cp
}

// Active returns a copy of the ring in seating order
func (pm *PlayerManager) Active() []*Player {
	out := make([]*Player, len(pm.players))
	copy(out, pm.players)
	return out
}

// ActiveCount returns the number of players still in the ring
func (pm *PlayerManager) ActiveCount() int {
	return len(pm.players)
}

// Winners returns the finish order
func (pm *PlayerManager) Winners() []*Player {
	out := make([]*Player, len(pm.winners))
	copy(out, pm.winners)
	return out
}

// Losers returns the elimination order
func (pm *PlayerManager) Losers() []*Player {
	out := make([]*Player, len(pm.losers))
	copy(out, pm.losers)
	return out
}
