package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mau-cards/maud/internal/game"
)

// Registry errors
var (
	// ErrRoomBusy means the room already has a live game
	ErrRoomBusy = errors.New("room already has a live game")
	// ErrNoGame means the room has no live game
	ErrNoGame = errors.New("room has no live game")
	// ErrAlreadyInGame means the user is bound to a live game in some room
	ErrAlreadyInGame = errors.New("user already in a live game")
)

// Archiver persists a finished game. The real implementation lives
// outside this process boundary; the engine only hands over the record.
type Archiver interface {
	Archive(ctx context.Context, record game.Record) error
}

// ArchiverFunc adapts a function to the Archiver interface
type ArchiverFunc func(ctx context.Context, record game.Record) error

// Archive calls the wrapped function
func (f ArchiverFunc) Archive(ctx context.Context, record game.Record) error {
	return f(ctx, record)
}

// LogArchiver records finished games to the log only, the default when
// no persistence sink is wired
type LogArchiver struct {
	Logger zerolog.Logger
}

// Archive logs the record
func (a LogArchiver) Archive(_ context.Context, record game.Record) error {
	a.Logger.Info().
		Str("room_id", record.RoomID).
		Str("owner_id", record.OwnerID).
		Time("game_start", record.GameStart).
		Time("game_end", record.GameEnd).
		Int("winners", len(record.Winners)).
		Int("losers", len(record.Losers)).
		Msg("game archived")
	return nil
}

type playerEntry struct {
	player *game.Player
	roomID string
}

// Manager is the process-wide registry binding one live game to a room
// and each user to at most one live game. Its lock guards only the
// maps, never a whole game operation: game calls run under the
// per-room game mutex instead.
type Manager struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	rooms   map[string]*game.Game
	players map[string]playerEntry
}

// NewManager constructs an empty registry
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger:  logger.With().Str("component", "session").Logger(),
		rooms:   make(map[string]*game.Game),
		players: make(map[string]playerEntry),
	}
}

// Create builds a game for the room with the owner seated, enforcing
// one game per room and one live game per user
func (m *Manager) Create(roomID string, owner game.BaseUser, opts ...game.Option) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; ok {
		return nil, ErrRoomBusy
	}
	if _, ok := m.players[owner.ID]; ok {
		return nil, ErrAlreadyInGame
	}

	g := game.NewGame(roomID, owner, opts...)
	m.rooms[roomID] = g
	m.players[owner.ID] = playerEntry{player: g.Owner(), roomID: roomID}
	m.logger.Info().Str("room_id", roomID).Str("owner_id", owner.ID).Msg("game created")
	return g, nil
}

// Room returns the live game for a room, if any
func (m *Manager) Room(roomID string) *game.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// Player resolves a user to their active player across all rooms
func (m *Manager) Player(userID string) *game.Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.players[userID]; ok {
		return entry.player
	}
	return nil
}

// PlayerRoom returns the room a user's live game runs in
func (m *Manager) PlayerRoom(userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.players[userID]
	return entry.roomID, ok
}

// Join seats a user in the room's game and binds them in the registry
func (m *Manager) Join(roomID string, user game.BaseUser) (*game.Player, error) {
	m.mu.RLock()
	g := m.rooms[roomID]
	_, bound := m.players[user.ID]
	m.mu.RUnlock()

	if g == nil {
		return nil, ErrNoGame
	}
	if bound {
		return nil, ErrAlreadyInGame
	}

	p, err := g.Join(user)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, taken := m.players[user.ID]; taken {
		// lost the race to another join
		m.mu.Unlock()
		_ = g.Leave(p)
		return nil, ErrAlreadyInGame
	}
	m.players[user.ID] = playerEntry{player: p, roomID: roomID}
	m.mu.Unlock()
	return p, nil
}

// Leave removes a user from their live game and unbinds them
func (m *Manager) Leave(userID string) error {
	m.mu.Lock()
	entry, ok := m.players[userID]
	if ok {
		delete(m.players, userID)
	}
	g := m.rooms[entry.roomID]
	m.mu.Unlock()

	if !ok || g == nil {
		return game.ErrNotInGame
	}
	return g.Leave(entry.player)
}

// Remove tears down the room's game and every player binding for its
// participants
func (m *Manager) Remove(roomID string) {
	m.mu.Lock()
	g, ok := m.rooms[roomID]
	if ok {
		delete(m.rooms, roomID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.unbindParticipants(roomID, g)
	m.logger.Info().Str("room_id", roomID).Msg("game removed")
}

func (m *Manager) unbindParticipants(roomID string, g *game.Game) {
	participants := g.Participants()
	m.mu.Lock()
	for _, user := range participants {
		if entry, ok := m.players[user.ID]; ok && entry.roomID == roomID {
			delete(m.players, user.ID)
		}
	}
	m.mu.Unlock()
}

// Finish archives a game that reached its terminal state and removes
// it. The registry entry is taken before archiving, so exactly one
// caller archives; the rest see no live game and return.
func (m *Manager) Finish(ctx context.Context, roomID string, archiver Archiver) error {
	m.mu.Lock()
	g, ok := m.rooms[roomID]
	if !ok || !g.Ended() {
		m.mu.Unlock()
		return nil
	}
	delete(m.rooms, roomID)
	m.mu.Unlock()

	m.unbindParticipants(roomID, g)

	if err := archiver.Archive(ctx, g.Result()); err != nil {
		m.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to archive game")
		return err
	}
	m.logger.Info().Str("room_id", roomID).Msg("game archived and removed")
	return nil
}

// GameCount returns the number of live games
func (m *Manager) GameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// PlayerCount returns the number of bound users
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
