package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pokerchat/internal/app/chat"
	"pokerchat/internal/app/client"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWebSocket_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(Router(testDeps()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c1, err := client.Dial(ctx, srv.URL, "sprint-42", "Bob")
	if err != nil {
		t.Fatalf("first dial failed: %v", err)
	}
	defer c1.Close()

	waitFor(t, "first member visible", func() bool {
		return len(c1.Engine().Users()) == 1
	})

	c2, err := client.Dial(ctx, srv.URL, "sprint-42", "Bob")
	if err != nil {
		t.Fatalf("second dial failed: %v", err)
	}
	defer c2.Close()

	waitFor(t, "both members visible on both clients", func() bool {
		return len(c1.Engine().Users()) == 2 && len(c2.Engine().Users()) == 2
	})

	users := c1.Engine().Users()
	if users[0].Username != "Bob" || users[1].Username != "Bob (2)" {
		t.Fatalf("member names = [%q, %q], want [Bob, Bob (2)]", users[0].Username, users[1].Username)
	}
	bobID := users[0].PublicID

	// A concealed vote reaches the room masked.
	if err := c1.Vote(chat.VoteFive); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	waitFor(t, "masked vote visible", func() bool {
		for _, u := range c2.Engine().Users() {
			if u.PublicID == bobID && u.Vote == chat.VoteHidden {
				return true
			}
		}
		return false
	})

	// Reveal carries the true vote.
	if err := c1.RevealVotes(); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	waitFor(t, "revealed vote visible", func() bool {
		if !c2.Engine().VotesRevealed() {
			return false
		}
		for _, u := range c2.Engine().Users() {
			if u.PublicID == bobID && u.Vote == chat.VoteFive {
				return true
			}
		}
		return false
	})

	if err := c1.SendMessage("ship it"); err != nil {
		t.Fatalf("send message failed: %v", err)
	}
	waitFor(t, "message relayed", func() bool {
		for _, m := range c2.Engine().Messages() {
			if m.Kind == client.KindMessage && m.Text == "ship it" && m.Username == "Bob" {
				return true
			}
		}
		return false
	})

	if err := c2.SendTyping(); err != nil {
		t.Fatalf("send typing failed: %v", err)
	}
	waitFor(t, "typing signal relayed", func() bool {
		for _, name := range c1.Engine().TypingUsers() {
			if name == "Bob (2)" {
				return true
			}
		}
		return false
	})

	// Leaving tears the member down for the remaining client.
	if err := c2.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	waitFor(t, "departed member removed", func() bool {
		return len(c1.Engine().Users()) == 1
	})
}

func TestWebSocket_DisconnectActsAsLeave(t *testing.T) {
	srv := httptest.NewServer(Router(testDeps()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c1, err := client.Dial(ctx, srv.URL, "sprint-43", "Alice")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c1.Close()

	// Drive a second member over a bare websocket so the connection can be
	// dropped without a leaveRoom frame.
	sessionRes, err := http.Get(srv.URL + "/api/startSession")
	if err != nil {
		t.Fatalf("session bootstrap failed: %v", err)
	}
	var env struct {
		Data struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(sessionRes.Body).Decode(&env); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	sessionRes.Body.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("raw dial failed: %v", err)
	}

	for _, frame := range []chat.ClientRequest{
		{Action: chat.ActionConnect, SessionID: env.Data.SessionID},
		{Action: chat.ActionJoinRoom, SessionID: env.Data.SessionID, RoomName: "sprint-43", Username: "Carol"},
	} {
		if err := ws.WriteJSON(frame); err != nil {
			t.Fatalf("write %s: %v", frame.Action, err)
		}
	}

	waitFor(t, "both members visible", func() bool {
		return len(c1.Engine().Users()) == 2
	})

	// The server's read pump detach must produce the same departure a
	// leaveRoom frame would.
	ws.Close()

	waitFor(t, "departed member removed", func() bool {
		return len(c1.Engine().Users()) == 1
	})
}
