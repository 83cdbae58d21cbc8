/*
Package client contains the Go client for the planning-poker chat server.

This file defines the connection wrapper: session bootstrap over HTTP, the
persistent websocket with its connect/joinRoom handshake, and the action send
helpers, including the cool-down throttle that bounds outbound typing signals.
*/
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pokerchat/internal/app/chat"
	"pokerchat/internal/pkg/logx"
	"pokerchat/internal/pkg/randx"
)

// TypingSendCooldown bounds outbound typing signals to one per window
// regardless of keystroke frequency. A trailing keystroke after the window
// re-arms one more send.
const TypingSendCooldown = 4 * time.Second

// typingThrottle implements the cool-down window for outbound typing signals.
type typingThrottle struct {
	clock clockwork.Clock
	last  time.Time
}

// allow reports whether a typing signal may be sent now, consuming the window
// when it may.
func (t *typingThrottle) allow() bool {
	now := t.clock.Now()
	if !t.last.IsZero() && now.Sub(t.last) < TypingSendCooldown {
		return false
	}
	t.last = now
	return true
}

// reset clears the window so the next keystroke sends immediately. Sending a
// message ends the composing state, so the throttle restarts with it.
func (t *typingThrottle) reset() {
	t.last = time.Time{}
}

// Client is one live connection to the chat server. It owns the websocket,
// the reconciliation Engine fed from it, and the session identity obtained
// from the bootstrap endpoint.
type Client struct {
	engine    *Engine
	sessionID string
	roomName  string

	ws      *websocket.Conn
	writeMu sync.Mutex

	throttleMu sync.Mutex
	throttle   typingThrottle

	closeOnce sync.Once
	done      chan struct{}

	logger zerolog.Logger
}

// sessionEnvelope matches the bootstrap endpoint's response shape.
type sessionEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		SessionID string `json:"sessionId"`
	} `json:"data"`
}

// Dial bootstraps a session against baseURL, opens the websocket, performs
// the connect/joinRoom handshake, and starts consuming the event stream.
func Dial(ctx context.Context, baseURL, roomName, username string) (*Client, error) {
	sessionID, err := startSession(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	wsURL := strings.Replace(strings.TrimSuffix(baseURL, "/"), "http", "ws", 1) + "/ws"

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}

	clock := clockwork.NewRealClock()

	c := &Client{
		engine:    NewEngine(username, clock),
		sessionID: sessionID,
		roomName:  roomName,
		ws:        ws,
		throttle:  typingThrottle{clock: clock},
		done:      make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("room", roomName).
			Logger(),
	}

	if err := c.send(chat.ClientRequest{Action: chat.ActionConnect, SessionID: sessionID}); err != nil {
		ws.Close()
		return nil, err
	}
	if err := c.send(chat.ClientRequest{
		Action:    chat.ActionJoinRoom,
		SessionID: sessionID,
		RoomName:  roomName,
		Username:  username,
	}); err != nil {
		ws.Close()
		return nil, err
	}

	go c.readLoop()

	return c, nil
}

// startSession performs the one-shot bootstrap call returning a fresh
// sessionId, independent of the event stream.
func startSession(ctx context.Context, baseURL string) (string, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/api/startSession"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build session request: %w", err)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("session bootstrap failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session bootstrap returned status %d", res.StatusCode)
	}

	var envelope sessionEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}

	if !randx.IsValidSessionID(envelope.Data.SessionID) {
		return "", fmt.Errorf("session bootstrap returned malformed sessionId (code %d)", envelope.Code)
	}

	return envelope.Data.SessionID, nil
}

// readLoop feeds every inbound frame to the engine until the connection
// drops.
func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed.")
			}
			return
		}

		c.engine.Apply(frame)
	}
}

// send writes one action frame to the websocket.
func (c *Client) send(req chat.ClientRequest) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", req.Action, err)
	}
	return nil
}

// Engine exposes the reconciliation state derived from the event stream.
func (c *Client) Engine() *Engine {
	return c.engine
}

// SendMessage relays one chat message. Blank messages are not sent. Sending
// ends the composing state, so the typing throttle is reset.
func (c *Client) SendMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.throttleMu.Lock()
	c.throttle.reset()
	c.throttleMu.Unlock()

	return c.send(chat.ClientRequest{
		Action:    chat.ActionSendMessage,
		SessionID: c.sessionID,
		RoomName:  c.roomName,
		Message:   text,
	})
}

// SendTyping signals that the user is composing, at most once per cool-down
// window.
func (c *Client) SendTyping() error {
	c.throttleMu.Lock()
	allowed := c.throttle.allow()
	c.throttleMu.Unlock()

	if !allowed {
		return nil
	}

	return c.send(chat.ClientRequest{
		Action:    chat.ActionUserTyping,
		SessionID: c.sessionID,
		RoomName:  c.roomName,
	})
}

// Vote casts or retracts a vote.
func (c *Client) Vote(vote chat.VoteType) error {
	return c.send(chat.ClientRequest{
		Action:    chat.ActionUserVote,
		SessionID: c.sessionID,
		RoomName:  c.roomName,
		Vote:      vote,
	})
}

// RevealVotes asks the server to unconceal every vote in the room.
func (c *Client) RevealVotes() error {
	return c.send(chat.ClientRequest{
		Action:    chat.ActionRevealVotes,
		SessionID: c.sessionID,
		RoomName:  c.roomName,
	})
}

// ClearVoting asks the server to reset the room's voting round.
func (c *Client) ClearVoting() error {
	return c.send(chat.ClientRequest{
		Action:    chat.ActionClearVoting,
		SessionID: c.sessionID,
		RoomName:  c.roomName,
	})
}

// UpdateProfile replaces this user's profile.
func (c *Client) UpdateProfile(profile chat.UserProfile) error {
	return c.send(chat.ClientRequest{
		Action:    chat.ActionUpdateProfile,
		SessionID: c.sessionID,
		RoomName:  c.roomName,
		Profile:   &profile,
	})
}

// Close leaves the room, closes the websocket, and stops all engine timers.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.send(chat.ClientRequest{
			Action:    chat.ActionLeaveRoom,
			SessionID: c.sessionID,
			RoomName:  c.roomName,
		})

		c.ws.Close()
		c.engine.Close()
	})
	return err
}

// Done is closed when the read loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
