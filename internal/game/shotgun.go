package game

import rand "math/rand/v2"

// DefaultCylinderSize is the chamber count of the revolver
const DefaultCylinderSize = 6

// Shotgun holds a player's revolver state for the current episode. The
// k-th consecutive shot eliminates with probability 1/(size-k), so the
// odds worsen with every survived chamber and the last chamber is
// always fatal.
type Shotgun struct {
	tried int
	size  int
}

// NewShotgun creates a revolver with the given cylinder size
func NewShotgun(size int) *Shotgun {
	if size <= 0 {
		size = DefaultCylinderSize
	}
	return &Shotgun{size: size}
}

// Shot consumes one chamber and reports whether it fired. Tried
// increments on every call regardless of outcome.
func (s *Shotgun) Shot(rng *rand.Rand) bool {
	remaining := s.size - s.tried
	s.tried++
	if remaining <= 1 {
		return true
	}
	return rng.IntN(remaining) == 0
}

// Tried returns how many chambers were consumed this episode
func (s *Shotgun) Tried() int {
	return s.tried
}

// Size returns the cylinder size
func (s *Shotgun) Size() int {
	return s.size
}

// Reset ends the episode for this player
func (s *Shotgun) Reset() {
	s.tried = 0
}
