package broadcast

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Conn streams a room's events over a WebSocket. The stream is one-way:
// the read side only services control frames and notices disconnects.
type Conn struct {
	ws     *websocket.Conn
	sub    *Subscriber
	bc     *Broadcaster
	logger zerolog.Logger
	done   chan struct{}
}

// NewConn wraps an upgraded WebSocket connection around a room
// subscription.
func NewConn(ws *websocket.Conn, sub *Subscriber, bc *Broadcaster, logger zerolog.Logger) *Conn {
	return &Conn{
		ws:     ws,
		sub:    sub,
		bc:     bc,
		logger: logger.With().Str("component", "broadcast").Str("room_id", sub.roomID).Logger(),
		done:   make(chan struct{}),
	}
}

// Run pumps events to the peer until the subscription closes or the
// peer goes away. It blocks; callers run it per connection.
func (c *Conn) Run() {
	go c.readPump()
	c.writePump()
}

func (c *Conn) readPump() {
	defer close(c.done)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.bc.Unsubscribe(c.sub)
		_ = c.ws.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				c.logger.Debug().Err(err).Msg("failed to write event")
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
