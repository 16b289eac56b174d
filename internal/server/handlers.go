package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mau-cards/maud/internal/broadcast"
	"github.com/mau-cards/maud/internal/deck"
	"github.com/mau-cards/maud/internal/game"
	"github.com/mau-cards/maud/internal/roomid"
	"github.com/mau-cards/maud/internal/session"
)

// User identity headers. Token issuance is out of scope: the layer in
// front of this server authenticates and forwards the identity.
const (
	headerUserID   = "X-User-Id"
	headerUserName = "X-User-Name"
)

// roomResponse is the body returned by every game operation: the room
// and the acting viewer's snapshot after the operation.
type roomResponse struct {
	RoomID string        `json:"room_id"`
	Game   game.GameData `json:"game"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func identity(r *http.Request) (game.BaseUser, error) {
	id := r.Header.Get(headerUserID)
	if id == "" {
		return game.BaseUser{}, ErrMissingUser
	}
	name := r.Header.Get(headerUserName)
	if name == "" {
		name = id
	}
	return game.BaseUser{ID: id, Name: name}, nil
}

// room resolves the live game for the request path
func (s *Server) room(r *http.Request) (string, *game.Game, error) {
	roomID := r.PathValue("room_id")
	g := s.sessions.Room(roomID)
	if g == nil {
		return roomID, nil, session.ErrNoGame
	}
	return roomID, g, nil
}

// seat resolves the acting user to their player in the room's game
func (s *Server) seat(r *http.Request) (string, *game.Game, *game.Player, error) {
	roomID, g, err := s.room(r)
	if err != nil {
		return roomID, nil, nil, err
	}
	user, err := identity(r)
	if err != nil {
		return roomID, nil, nil, err
	}
	p := g.Player(user.ID)
	if p == nil {
		return roomID, nil, nil, game.ErrNotInGame
	}
	return roomID, g, p, nil
}

func (s *Server) respond(w http.ResponseWriter, roomID string, g *game.Game, viewerID string) {
	writeJSON(w, http.StatusOK, roomResponse{RoomID: roomID, Game: g.Snapshot(viewerID)})
}

// finishIfEnded archives and removes the room once its game reaches the
// terminal state, then disconnects the event stream
func (s *Server) finishIfEnded(ctx context.Context, roomID string, g *game.Game) {
	if !g.Ended() {
		return
	}
	if err := s.sessions.Finish(ctx, roomID, s.archiver); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to finish game")
	}
	s.events.CloseRoom(roomID)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	roomID := roomid.New()
	g, err := s.sessions.Create(roomID, user,
		game.WithLogger(s.logger),
		game.WithSink(s.events.Sink(roomID)),
		game.WithRules(game.Rules{
			Shotgun:   s.cfg.Game.Shotgun,
			TwistHand: s.cfg.Game.TwistHand,
		}),
		game.WithHandSize(s.cfg.Game.HandSize),
		game.WithCylinderSize(s.cfg.Game.CylinderSize),
		game.WithMinPlayers(s.cfg.Game.MinPlayers),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomResponse{RoomID: roomID, Game: g.Snapshot(user.ID)})
}

func (s *Server) handleRoomState(w http.ResponseWriter, r *http.Request) {
	roomID, g, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	viewerID := r.Header.Get(headerUserID)
	s.respond(w, roomID, g, viewerID)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	roomID, _, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := identity(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.sessions.Join(roomID, user); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, s.sessions.Room(roomID), user.ID)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	roomID, g, _, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, _ := identity(r)
	if err := s.sessions.Leave(user.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.finishIfEnded(r.Context(), roomID, g)
	s.respond(w, roomID, g, user.ID)
}

// requireOwner checks that the acting user owns the room's game
func requireOwner(g *game.Game, user game.BaseUser) error {
	if g.Owner().UserID != user.ID {
		return ErrNotOwner
	}
	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	roomID, g, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := identity(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := requireOwner(g, user); err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.Start(); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, user.ID)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	roomID, g, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := identity(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := requireOwner(g, user); err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.End(); err != nil {
		s.writeError(w, err)
		return
	}
	s.finishIfEnded(r.Context(), roomID, g)
	s.respond(w, roomID, g, user.ID)
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	roomID, g, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := identity(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := requireOwner(g, user); err != nil {
		s.writeError(w, err)
		return
	}

	targetID := r.PathValue("user_id")
	if g.Player(targetID) == nil {
		s.writeError(w, game.ErrPlayerNotFound)
		return
	}
	if err := s.sessions.Leave(targetID); err != nil {
		s.writeError(w, err)
		return
	}
	s.finishIfEnded(r.Context(), roomID, g)
	s.respond(w, roomID, g, user.ID)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	roomID, g, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.SkipCurrent(); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, r.Header.Get(headerUserID))
}

func (s *Server) handleNextTurn(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.NextTurn(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, p.UserID)
}

func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.TakeCards(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, p.UserID)
}

func (s *Server) handleShot(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.Shot(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.finishIfEnded(r.Context(), roomID, g)
	s.respond(w, roomID, g, p.UserID)
}

func (s *Server) handleBluff(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := g.CallBluff(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, p.UserID)
}

func (s *Server) handleChooseColor(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	color, err := deck.ParseColor(r.PathValue("color"))
	if err != nil {
		s.writeError(w, game.ErrInvalidColorChoice)
		return
	}
	if err := g.ChooseColor(p, color); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, p.UserID)
}

func (s *Server) handleChoosePlayer(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	target := g.Player(r.PathValue("user_id"))
	if target == nil {
		s.writeError(w, game.ErrPlayerNotFound)
		return
	}
	if err := g.TwistHand(p, target); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, roomID, g, p.UserID)
}

func (s *Server) handlePlayCard(w http.ResponseWriter, r *http.Request) {
	roomID, g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	card, err := deck.ParseCard(r.PathValue("card"))
	if err != nil {
		s.writeError(w, game.ErrInvalidMove)
		return
	}
	if err := g.ProcessTurn(p, card); err != nil {
		s.writeError(w, err)
		return
	}
	s.finishIfEnded(r.Context(), roomID, g)
	s.respond(w, roomID, g, p.UserID)
}

// handleEvents upgrades the connection and streams the room's events
// until the peer disconnects or the room closes
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	roomID, _, err := s.room(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	sub := s.events.Subscribe(roomID)
	conn := broadcast.NewConn(ws, sub, s.events, s.logger)
	go conn.Run()
}
