/*
Package chat contains the core logic for the planning-poker chat rooms.

This file defines the Conn struct wrapping one WebSocket connection. It runs
the message communication loops (ReadPump and WritePump), implements the
Transport capability the Hub delivers through, and triggers the hub's detach
path when the connection closes.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pokerchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Conn is one active WebSocket connection. It satisfies Transport; the Hub
// never touches the socket directly.
type Conn struct {
	// hub receives inbound frames and the disconnect signal.
	hub *Hub

	// underlying WebSocket connection object.
	ws *websocket.Conn

	// send queues serialized events waiting to be written to the peer.
	send chan []byte

	// quit is closed exactly once when the connection shuts down.
	quit chan struct{}

	// closeOnce guards the shutdown path.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewConn wraps an upgraded WebSocket connection.
func NewConn(hub *Hub, ws *websocket.Conn) *Conn {
	return &Conn{
		hub:  hub,
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
		quit: make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "Conn").
			Str("remote_addr", ws.RemoteAddr().String()).
			Logger(),
	}
}

// Deliver queues one serialized event for the peer without blocking. Events
// for closed connections or full queues are dropped.
func (c *Conn) Deliver(payload []byte) bool {
	select {
	case <-c.quit:
		return false
	case c.send <- payload:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping event.")
		return false
	}
}

// IsOpen reports whether the connection is still usable.
func (c *Conn) IsOpen() bool {
	select {
	case <-c.quit:
		return false
	default:
		return true
	}
}

// shutdown closes the connection exactly once.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.quit)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error.")
		}
	})
}

// ReadPump reads frames from the WebSocket connection and hands them to the
// Hub. It handles heartbeats (Pong) and performs the disconnect cleanup when
// the connection drops: closing a connection is the leave signal for its
// session, with no grace period.
func (c *Conn) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Detach(c)
		c.shutdown()
	}()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline.")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away).")
			}
			return
		}

		c.hub.HandleRequest(ctx, c, frame)
	}
}

// WritePump writes queued events to the WebSocket connection and keeps the
// heartbeat alive with periodic Pings.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline.")
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error().Err(err).Msg("Error writing event.")
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping.")
				return
			}

			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping.")
				return
			}

		case <-c.quit:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing close message.")
			}
			return
		}
	}
}
