package game

import "errors"

// Engine errors. All are locally recoverable: no operation that returns
// one of these leaves the game in a torn state. The request layer maps
// them to user-facing responses.
var (
	ErrGameNotStarted       = errors.New("game not started")
	ErrGameAlreadyStarted   = errors.New("game already started")
	ErrGameEnded            = errors.New("game has ended")
	ErrInsufficientPlayers  = errors.New("not enough players to start")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrInvalidMove          = errors.New("card is not playable")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrAlreadyJoined        = errors.New("player already joined")
	ErrNotInGame            = errors.New("player not in game")
	ErrBluffAlreadyResolved = errors.New("bluff window already resolved")
	ErrInvalidColorChoice   = errors.New("invalid color choice")
	ErrNoPendingChoice      = errors.New("no pending choice in this state")
)
