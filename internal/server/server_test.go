package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mau-cards/maud/internal/game"
	"github.com/mau-cards/maud/internal/session"
)

type testEnv struct {
	t      *testing.T
	srv    *Server
	ts     *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	srv := New(DefaultConfig(), zerolog.Nop(), opts...)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, srv: srv, ts: ts, client: ts.Client()}
}

// do issues a request as the given user and decodes the JSON body
func (e *testEnv) do(method, path, userID string, out any) *http.Response {
	e.t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, nil)
	require.NoError(e.t, err)
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) createRoom(userID string) string {
	e.t.Helper()
	var body roomResponse
	resp := e.do(http.MethodPost, "/rooms", userID, &body)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(e.t, body.RoomID)
	return body.RoomID
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	resp := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRoomRequiresIdentity(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	resp := e.do(http.MethodPost, "/rooms", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJoinStartFlow(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")

	var body roomResponse
	resp := e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Game.Players, 2)

	// only the owner may start
	resp = e.do(http.MethodPost, "/rooms/"+roomID+"/start", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "play", body.Game.State)
	for _, p := range body.Game.Players {
		assert.Equal(t, 7, p.Hand)
	}
	require.NotNil(t, body.Game.Deck.Top)
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")
	resp := e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshotHidesOtherHands(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")
	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)
	e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", nil)

	var body roomResponse
	resp := e.do(http.MethodGet, "/rooms/"+roomID, "alice", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, p := range body.Game.Players {
		if p.UserID == "alice" {
			assert.NotNil(t, p.Cards)
		} else {
			assert.Nil(t, p.Cards)
		}
	}
}

func TestCurrentPlayerCanAct(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")
	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)
	e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", nil)

	var state roomResponse
	e.do(http.MethodGet, "/rooms/"+roomID, "alice", &state)
	me := state.Game.Players[state.Game.CurrentPlayer]
	require.Equal(t, "alice", me.UserID)
	require.NotNil(t, me.Cards)

	var body roomResponse
	if len(me.Cards.Uncover) > 0 {
		card := me.Cards.Uncover[0].Card
		resp := e.do(http.MethodPost, "/rooms/"+roomID+"/card/"+card, "alice", &body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	} else {
		resp := e.do(http.MethodPost, "/rooms/"+roomID+"/take", "alice", &body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 8, body.Game.Players[0].Hand)
	}
}

func TestActingOutOfTurnRejected(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")
	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)
	e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", nil)

	resp := e.do(http.MethodPost, "/rooms/"+roomID+"/next", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRoomIs404(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	for _, path := range []string{"/rooms/nope", "/rooms/nope/join", "/rooms/nope/start"} {
		method := http.MethodPost
		if strings.Count(path, "/") == 2 {
			method = http.MethodGet
		}
		resp := e.do(method, path, "alice", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestInvalidCardNotationRejected(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")
	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)
	e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", nil)

	resp := e.do(http.MethodPost, "/rooms/"+roomID+"/card/purple99", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(http.MethodPost, "/rooms/"+roomID+"/color/purple", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEndArchivesAndRemovesRoom(t *testing.T) {
	t.Parallel()
	archived := make(chan game.Record, 1)
	e := newTestEnv(t, WithArchiver(session.ArchiverFunc(
		func(_ context.Context, record game.Record) error {
			archived <- record
			return nil
		})))

	roomID := e.createRoom("alice")
	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)
	e.do(http.MethodPost, "/rooms/"+roomID+"/start", "alice", nil)

	resp := e.do(http.MethodPost, "/rooms/"+roomID+"/end", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case record := <-archived:
		assert.Equal(t, roomID, record.RoomID)
		assert.Equal(t, "alice", record.OwnerID)
		assert.Len(t, record.Losers, 2)
	default:
		t.Fatal("archiver was not called")
	}

	resp = e.do(http.MethodGet, "/rooms/"+roomID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestKickRequiresOwner(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")
	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)

	resp := e.do(http.MethodPost, "/rooms/"+roomID+"/kick/alice", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body roomResponse
	resp = e.do(http.MethodPost, "/rooms/"+roomID+"/kick/bob", "alice", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Game.Players, 1)
}

func TestEventStreamDeliversGameEvents(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	roomID := e.createRoom("alice")

	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/rooms/" + roomID + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	e.do(http.MethodPost, "/rooms/"+roomID+"/join", "bob", nil)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev game.Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, game.EventPlayerJoined, ev.Type)
	assert.Equal(t, "bob", ev.Player.UserID)
	assert.NotEmpty(t, ev.ID)
}
