// Package server is the HTTP and WebSocket request layer in front of
// the game engine. Requests carry the acting user in headers; the
// server trusts them and maps engine errors to status codes.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mau-cards/maud/internal/broadcast"
	"github.com/mau-cards/maud/internal/session"
)

// Server owns the HTTP listener, the session registry and the event
// broadcaster.
type Server struct {
	cfg      *Config
	logger   zerolog.Logger
	sessions *session.Manager
	events   *broadcast.Broadcaster
	archiver session.Archiver
	upgrader websocket.Upgrader
	http     *http.Server
}

// Option configures the server
type Option func(*Server)

// WithArchiver replaces the default log-only archiver
func WithArchiver(a session.Archiver) Option {
	return func(s *Server) { s.archiver = a }
}

// WithSessions replaces the session registry, used by tests
func WithSessions(m *session.Manager) Option {
	return func(s *Server) { s.sessions = m }
}

// New creates a server from the configuration
func New(cfg *Config, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "server").Logger(),
		sessions: session.NewManager(logger),
		events:   broadcast.New(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.archiver == nil {
		s.archiver = session.LogArchiver{Logger: logger}
	}
	s.http = &http.Server{Addr: cfg.Addr(), Handler: s.Routes()}
	return s
}

// Routes builds the request mux. Exposed so tests can drive the
// handlers through httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /rooms/{room_id}", s.handleRoomState)
	mux.HandleFunc("GET /rooms/{room_id}/events", s.handleEvents)

	mux.HandleFunc("POST /rooms/{room_id}/join", s.handleJoin)
	mux.HandleFunc("POST /rooms/{room_id}/leave", s.handleLeave)
	mux.HandleFunc("POST /rooms/{room_id}/start", s.handleStart)
	mux.HandleFunc("POST /rooms/{room_id}/end", s.handleEnd)
	mux.HandleFunc("POST /rooms/{room_id}/kick/{user_id}", s.handleKick)
	mux.HandleFunc("POST /rooms/{room_id}/skip", s.handleSkip)

	mux.HandleFunc("POST /rooms/{room_id}/next", s.handleNextTurn)
	mux.HandleFunc("POST /rooms/{room_id}/take", s.handleTake)
	mux.HandleFunc("POST /rooms/{room_id}/shotgun/take", s.handleTake)
	mux.HandleFunc("POST /rooms/{room_id}/shotgun/shot", s.handleShot)
	mux.HandleFunc("POST /rooms/{room_id}/bluff", s.handleBluff)
	mux.HandleFunc("POST /rooms/{room_id}/color/{color}", s.handleChooseColor)
	mux.HandleFunc("POST /rooms/{room_id}/player/{user_id}", s.handleChoosePlayer)
	mux.HandleFunc("POST /rooms/{room_id}/card/{card}", s.handlePlayCard)

	return mux
}

// Start serves HTTP until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.cfg.Addr()).Msg("starting server")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains the listener and disconnects event subscribers
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
