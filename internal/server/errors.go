package server

import (
	"errors"
	"net/http"

	"github.com/mau-cards/maud/internal/game"
	"github.com/mau-cards/maud/internal/session"
)

// Request-layer errors
var (
	// ErrNotOwner means the operation is reserved to the room owner
	ErrNotOwner = errors.New("not the room owner")
	// ErrMissingUser means the request carried no user identity
	ErrMissingUser = errors.New("missing user header")
)

// errorStatus maps an error to the HTTP status code reported to the
// client. Unknown errors are internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNoGame),
		errors.Is(err, game.ErrPlayerNotFound),
		errors.Is(err, game.ErrNotInGame):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRoomBusy),
		errors.Is(err, session.ErrAlreadyInGame),
		errors.Is(err, game.ErrAlreadyJoined),
		errors.Is(err, game.ErrGameAlreadyStarted),
		errors.Is(err, game.ErrGameEnded),
		errors.Is(err, game.ErrBluffAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingUser),
		errors.Is(err, game.ErrGameNotStarted),
		errors.Is(err, game.ErrInsufficientPlayers),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrInvalidMove),
		errors.Is(err, game.ErrInvalidColorChoice),
		errors.Is(err, game.ErrNoPendingChoice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
