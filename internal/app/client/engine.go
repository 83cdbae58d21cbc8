/*
Package client contains the Go client for the planning-poker chat server: the
reconciliation engine that rebuilds a consistent room view from the server's
event stream, and the dialing connection wrapper around it.

This file defines the Engine, a state reducer over the ordered event stream.
Everything it exposes (message log, member list, typing set, reveal flag, own
profile) is derived from events; the only local inputs are the typing-decay
timers, driven through an injected clock so tests control time.
*/
package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pokerchat/internal/app/chat"
	"pokerchat/internal/pkg/logx"
)

// TypingIdleTimeout is how long a member stays in the typing set after their
// last typing signal. Expiry is silent; no event is involved.
const TypingIdleTimeout = 6 * time.Second

// MessageKind distinguishes chat messages from system announcements.
type MessageKind string

const (
	KindMessage      MessageKind = "message"
	KindAnnouncement MessageKind = "announcement"
)

// Message is one entry of the local message log. IDs are client-local and
// monotonic.
type Message struct {
	ID       int
	Kind     MessageKind
	Username string
	Text     string
}

// User is one entry of the local member list.
type User struct {
	Username string
	PublicID string
	Vote     chat.VoteType
	Profile  *chat.UserProfile
}

// typingEntry tracks one member's pending typing expiry. The generation
// counter lets a stale timer callback recognize it has been superseded.
type typingEntry struct {
	username string
	gen      uint64
	timer    clockwork.Timer
}

// Engine consumes the server event stream and derives the local room view.
// All methods are safe for concurrent use; timer callbacks share the same
// mutex as Apply.
type Engine struct {
	mu sync.Mutex

	// username is the display name this client asked to join with, used to
	// recognize its own profile in Join and ProfileUpdate events.
	username string

	clock clockwork.Clock

	nextMsgID int
	typingGen uint64

	messages      []Message
	users         []User
	typing        map[string]*typingEntry
	votesRevealed bool
	myProfile     chat.UserProfile

	closed bool

	logger zerolog.Logger
}

// NewEngine constructs an Engine for the given chosen display name. The
// initial own profile is the deterministic default derived from that name; it
// is overwritten as soon as a Join or ProfileUpdate event for the name
// arrives.
func NewEngine(username string, clock clockwork.Clock) *Engine {
	return &Engine{
		username:  username,
		clock:     clock,
		typing:    make(map[string]*typingEntry),
		myProfile: chat.DefaultProfile(username),
		logger:    logx.Logger().With().Str("component", "Engine").Logger(),
	}
}

// Apply consumes one raw server frame. Malformed or unrecognized frames are
// discarded and prior state is kept.
func (e *Engine) Apply(raw []byte) {
	var event chat.InboundEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		e.logger.Debug().Err(err).Msg("Discarding malformed event.")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	switch event.Type {
	case chat.EventJoin:
		e.applyJoin(event)
	case chat.EventLeave:
		e.applyLeave(event)
	case chat.EventMessage:
		e.applyMessage(event)
	case chat.EventTyping:
		e.applyTyping(event)
	case chat.EventVote:
		e.applyVote(event)
	case chat.EventRevealVotes:
		e.applyRevealVotes(event)
	case chat.EventClearVotes:
		e.applyClearVotes(event)
	case chat.EventProfileUpdate:
		e.applyProfileUpdate(event)
	default:
		e.logger.Debug().Str("event_type", event.Type).Msg("Discarding unrecognized event.")
	}
}

func (e *Engine) applyJoin(event chat.InboundEvent) {
	e.announceLocked(event.Username, "has joined")

	users := make([]User, 0, len(event.AllUsers))
	for _, u := range event.AllUsers {
		users = append(users, User{
			Username: u.Username,
			PublicID: u.PublicID,
			Vote:     u.Vote,
			Profile:  u.Profile,
		})
	}
	e.users = users

	// The join round trip is how this client learns its own de-duplicated
	// name and stored profile.
	for _, u := range event.AllUsers {
		if u.Username == e.username && u.Profile != nil {
			e.myProfile = *u.Profile
			break
		}
	}
}

func (e *Engine) applyLeave(event chat.InboundEvent) {
	kept := e.users[:0]
	for _, u := range e.users {
		if u.PublicID != event.PublicID {
			kept = append(kept, u)
		}
	}
	e.users = kept

	e.announceLocked(event.Username, "has left")
}

func (e *Engine) applyMessage(event chat.InboundEvent) {
	// A message implies typing ended for its author.
	e.clearTypingLocked(event.PublicID)

	e.nextMsgID++
	e.messages = append(e.messages, Message{
		ID:       e.nextMsgID,
		Kind:     KindMessage,
		Username: event.Username,
		Text:     event.Message,
	})
}

func (e *Engine) applyTyping(event chat.InboundEvent) {
	if existing, ok := e.typing[event.PublicID]; ok {
		existing.timer.Stop()
	}

	e.typingGen++
	gen := e.typingGen
	publicID := event.PublicID

	e.typing[publicID] = &typingEntry{
		username: event.Username,
		gen:      gen,
		timer: e.clock.AfterFunc(TypingIdleTimeout, func() {
			e.expireTyping(publicID, gen)
		}),
	}
}

func (e *Engine) applyVote(event chat.InboundEvent) {
	if event.Vote == chat.VoteUnvote {
		e.announceLocked(event.Username, "has un-voted.")
	} else {
		e.announceLocked(event.Username, "has voted.")
	}

	for i := range e.users {
		if e.users[i].PublicID == event.PublicID {
			e.users[i].Vote = event.Vote
		}
	}
}

func (e *Engine) applyRevealVotes(event chat.InboundEvent) {
	e.announceLocked(event.Username, "revealed the votes.")
	e.votesRevealed = true

	votes := make(map[string]chat.VoteType, len(event.Votes))
	for _, v := range event.Votes {
		votes[v.PublicID] = v.Vote
	}

	for i := range e.users {
		if vote, ok := votes[e.users[i].PublicID]; ok {
			e.users[i].Vote = vote
		}
	}
}

func (e *Engine) applyClearVotes(event chat.InboundEvent) {
	e.announceLocked(event.Username, "cleared the votes.")
	e.votesRevealed = false

	for i := range e.users {
		e.users[i].Vote = chat.VoteUnvote
	}
}

func (e *Engine) applyProfileUpdate(event chat.InboundEvent) {
	if event.Profile == nil {
		return
	}

	for i := range e.users {
		if e.users[i].PublicID == event.PublicID {
			profile := *event.Profile
			e.users[i].Profile = &profile
		}
	}

	if event.Username == e.username {
		e.myProfile = *event.Profile
	}
}

// announceLocked appends a system announcement to the message log.
func (e *Engine) announceLocked(username, text string) {
	e.nextMsgID++
	e.messages = append(e.messages, Message{
		ID:       e.nextMsgID,
		Kind:     KindAnnouncement,
		Username: username,
		Text:     text,
	})
}

// clearTypingLocked cancels the pending expiry for the member, if any.
func (e *Engine) clearTypingLocked(publicID string) {
	if entry, ok := e.typing[publicID]; ok {
		entry.timer.Stop()
		delete(e.typing, publicID)
	}
}

// expireTyping is the timer callback removing an idle typing entry. The
// generation check makes a stale callback a no-op after the entry was
// refreshed or cleared.
func (e *Engine) expireTyping(publicID string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.typing[publicID]
	if !ok || entry.gen != gen {
		return
	}

	delete(e.typing, publicID)
}

// Messages returns a copy of the message log.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Users returns a copy of the member list in membership order.
func (e *Engine) Users() []User {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]User, len(e.users))
	copy(out, e.users)
	return out
}

// TypingUsers returns the display names currently in the typing set.
func (e *Engine) TypingUsers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.typing))
	for _, entry := range e.typing {
		names = append(names, entry.username)
	}
	return names
}

// VotesRevealed reports whether the room is currently in the revealed state.
func (e *Engine) VotesRevealed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.votesRevealed
}

// RevealedTally returns the revealed votes as display labels keyed by
// username ("5", "?", "½"; empty for members who never voted). Nil until the
// room is in the revealed state.
func (e *Engine) RevealedTally() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.votesRevealed {
		return nil
	}

	tally := make(map[string]string, len(e.users))
	for _, u := range e.users {
		tally[u.Username] = u.Vote.Label()
	}
	return tally
}

// MyProfile returns this client's own profile.
func (e *Engine) MyProfile() chat.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.myProfile
}

// Close cancels all pending timers and freezes the engine. Further events
// are ignored; no stale callback will mutate torn-down state.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for publicID, entry := range e.typing {
		entry.timer.Stop()
		delete(e.typing, publicID)
	}
	e.closed = true
}
