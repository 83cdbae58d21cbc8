/*
Package chat contains the core logic for the planning-poker chat rooms.

This file defines the Hub, the owner of the session and room registries and
the single serialization point for every room mutation. Each action executes
to completion under the hub mutex before the next one is admitted, so the
per-room event order every recipient observes is the order the handlers
produced. Actions whose precondition fails (unknown session, no room joined)
mutate nothing and broadcast nothing.
*/
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pokerchat/internal/pkg/logx"
	"pokerchat/internal/pkg/randx"
)

// Hub coordinates all sessions and rooms. Registries are owned by the Hub
// instance rather than the process, so tests construct isolated hubs.
type Hub struct {
	// mu serializes every registry mutation and the broadcast fan-out.
	mu sync.Mutex

	// sessions maps sessionId to the owning Session.
	sessions map[string]*Session

	// rooms maps room name to the live Room. Rooms are created on first
	// join and removed the moment they empty.
	rooms map[string]*Room

	// profiles is the collaborator store for profile persistence.
	profiles ProfileStore

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub backed by the given profile store.
func NewHub(profiles ProfileStore) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]*Room),
		profiles: profiles,
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// StartSession allocates a fresh session with no room, no name, and a
// concealed no-vote state, and returns its sessionId.
func (h *Hub) StartSession() (string, error) {
	publicID, err := randx.PublicID()
	if err != nil {
		return "", fmt.Errorf("failed to allocate public id: %w", err)
	}

	session := &Session{
		SessionID:   randx.SessionID(),
		PublicID:    publicID,
		CurrentVote: VoteUnvote,
		VoteHidden:  true,
		Profile:     UserProfile{AvatarConfig: DefaultAvatar("")},
	}

	h.mu.Lock()
	h.sessions[session.SessionID] = session
	h.mu.Unlock()

	h.logger.Info().
		Str("session_id", session.SessionID).
		Str("public_id", session.PublicID).
		Msg("Session started.")

	return session.SessionID, nil
}

// Attach binds a live transport to an existing session. Unknown session ids
// are ignored; attaching implies nothing about room membership.
func (h *Hub) Attach(sessionID string, t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		h.logger.Debug().Str("session_id", sessionID).Msg("Attach for unknown session ignored.")
		return
	}

	session.transport = t
}

// Detach finds the session owning the transport, clears the binding, and
// runs the leave action for it. Transports owned by no session are ignored.
func (h *Hub) Detach(t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		if session.transport == t {
			session.transport = nil
			h.leaveLocked(session)
			return
		}
	}
}

// HandleRequest decodes one raw client frame and dispatches it to the
// matching action handler. Frames that fail schema validation are dropped
// silently, with a debug log only.
func (h *Hub) HandleRequest(ctx context.Context, t Transport, raw []byte) {
	req, err := ParseClientRequest(raw)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Dropping invalid client request.")
		return
	}

	switch req.Action {
	case ActionConnect:
		h.Attach(req.SessionID, t)
	case ActionJoinRoom:
		h.JoinRoom(ctx, req.SessionID, req.RoomName, req.Username)
	case ActionLeaveRoom:
		h.LeaveRoom(req.SessionID)
	case ActionSendMessage:
		h.SendMessage(req.SessionID, req.Message)
	case ActionUserTyping:
		h.UserTyping(req.SessionID)
	case ActionUserVote:
		h.UserVote(req.SessionID, req.Vote)
	case ActionRevealVotes:
		h.RevealVotes(req.SessionID)
	case ActionClearVoting:
		h.ClearVoting(req.SessionID)
	case ActionUpdateProfile:
		h.UpdateProfile(ctx, req.SessionID, *req.Profile)
	}
}

// JoinRoom inserts the session into the room (creating it on demand),
// de-duplicates the display name against current members, resets the vote
// state, loads or creates the profile for the final name, and announces the
// join with the complete member list.
func (h *Hub) JoinRoom(ctx context.Context, sessionID, roomName, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	room := h.getOrCreateRoomLocked(roomName)

	session.Username = deduplicateName(room, username)
	session.RoomName = roomName
	session.CurrentVote = VoteUnvote
	session.VoteHidden = true
	session.Profile = h.loadOrCreateProfile(ctx, session.Username)

	room.add(session)

	members := room.Sessions()
	allUsers := make([]UserData, 0, len(members))
	for _, member := range members {
		allUsers = append(allUsers, buildUserData(member))
	}

	h.logger.Info().
		Str("room", roomName).
		Str("public_id", session.PublicID).
		Str("username", session.Username).
		Int("members", room.Len()).
		Msg("User joined room.")

	h.broadcastLocked(roomName, JoinEvent{
		EventHeader: EventHeader{Type: EventJoin, Username: session.Username, PublicID: session.PublicID},
		Profile:     session.Profile,
		AllUsers:    allUsers,
	})
}

// LeaveRoom removes the session from its room, deletes the room if that
// emptied it, announces the departure to the remaining members, and ends the
// session.
func (h *Hub) LeaveRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	h.leaveLocked(session)
}

// leaveLocked is the core of the leave action. Callers hold h.mu. Sessions
// that never joined a room are deleted without any broadcast.
func (h *Hub) leaveLocked(session *Session) {
	if session.RoomName == "" {
		delete(h.sessions, session.SessionID)
		return
	}

	if room, ok := h.rooms[session.RoomName]; ok {
		room.remove(session.SessionID)
		if room.Len() == 0 {
			delete(h.rooms, session.RoomName)
		}
	}

	h.logger.Info().
		Str("room", session.RoomName).
		Str("public_id", session.PublicID).
		Str("username", session.Username).
		Msg("User left room.")

	h.broadcastLocked(session.RoomName, LeaveEvent{
		EventHeader: EventHeader{Type: EventLeave, Username: session.Username, PublicID: session.PublicID},
	})

	delete(h.sessions, session.SessionID)
}

// SendMessage relays one chat message to the sender's room. Stateless.
func (h *Hub) SendMessage(sessionID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	h.broadcastLocked(session.RoomName, MessageEvent{
		EventHeader: EventHeader{Type: EventMessage, Username: session.Username, PublicID: session.PublicID},
		Message:     message,
	})
}

// UserTyping relays a typing signal to the sender's room. Stateless; decay
// is handled client-side.
func (h *Hub) UserTyping(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	h.broadcastLocked(session.RoomName, TypingEvent{
		EventHeader: EventHeader{Type: EventTyping, Username: session.Username, PublicID: session.PublicID},
	})
}

// UserVote records the vote and announces it, masked to VoteHidden while the
// voter's vote state is concealed. The no-vote sentinel is never masked.
func (h *Hub) UserVote(sessionID string, vote VoteType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	session.CurrentVote = vote

	broadcastVote := vote
	if session.VoteHidden && vote != VoteUnvote {
		broadcastVote = VoteHidden
	}

	h.broadcastLocked(session.RoomName, VoteEvent{
		EventHeader: EventHeader{Type: EventVote, Username: session.Username, PublicID: session.PublicID},
		Vote:        broadcastVote,
	})
}

// RevealVotes unconceals every member of the actor's room and broadcasts the
// real votes in membership order.
func (h *Hub) RevealVotes(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	room, ok := h.rooms[session.RoomName]
	if !ok {
		return
	}

	members := room.Sessions()
	votes := make([]UserVoteData, 0, len(members))
	for _, member := range members {
		member.VoteHidden = false
		votes = append(votes, UserVoteData{
			Username: member.Username,
			PublicID: member.PublicID,
			Vote:     member.CurrentVote,
		})
	}

	h.broadcastLocked(session.RoomName, RevealVotesEvent{
		EventHeader: EventHeader{Type: EventRevealVotes, Username: session.Username, PublicID: session.PublicID},
		Votes:       votes,
	})
}

// ClearVoting resets every member of the actor's room to a concealed no-vote
// state. Calling it on an already-cleared room yields the same state.
func (h *Hub) ClearVoting(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	room, ok := h.rooms[session.RoomName]
	if !ok {
		return
	}

	for _, member := range room.Sessions() {
		member.VoteHidden = true
		member.CurrentVote = VoteUnvote
	}

	h.broadcastLocked(session.RoomName, ClearVotesEvent{
		EventHeader: EventHeader{Type: EventClearVotes, Username: session.Username, PublicID: session.PublicID},
	})
}

// UpdateProfile replaces the member's profile, persists it under the display
// name, and announces the change. Persistence failures degrade to
// broadcast-only.
func (h *Hub) UpdateProfile(ctx context.Context, sessionID string, profile UserProfile) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok || session.RoomName == "" {
		return
	}

	session.Profile = profile

	if err := h.profiles.Put(ctx, session.Username, profile); err != nil {
		h.logger.Warn().Err(err).
			Str("username", session.Username).
			Msg("Failed to persist profile update.")
	}

	h.broadcastLocked(session.RoomName, ProfileUpdateEvent{
		EventHeader: EventHeader{Type: EventProfileUpdate, Username: session.Username, PublicID: session.PublicID},
		Profile:     profile,
	})
}

// getOrCreateRoomLocked returns the named room, creating it on first use.
// Callers hold h.mu.
func (h *Hub) getOrCreateRoomLocked(name string) *Room {
	room, ok := h.rooms[name]
	if !ok {
		room = newRoom(name)
		h.rooms[name] = room
		h.logger.Info().Str("room", name).Msg("Room created.")
	}
	return room
}

// broadcastLocked serializes the event once and delivers it to every member
// of the room whose transport is attached and open. Members without a usable
// transport are skipped; delivery is at-most-once, never queued or retried.
// Callers hold h.mu.
func (h *Hub) broadcastLocked(roomName string, event any) {
	room, ok := h.rooms[roomName]
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomName).Msg("Failed to marshal event for broadcast.")
		return
	}

	for _, member := range room.Sessions() {
		if member.transport == nil || !member.transport.IsOpen() {
			continue
		}

		if !member.transport.Deliver(payload) {
			h.logger.Warn().
				Str("room", roomName).
				Str("public_id", member.PublicID).
				Msg("Dropped event for slow or closed connection.")
		}
	}
}

// deduplicateName resolves a display-name collision inside the room by
// probing "name (2)", "name (3)", … until a free name is found. Deterministic
// for a given member set.
func deduplicateName(room *Room, desired string) string {
	taken := room.usernames()

	if _, exists := taken[desired]; !exists {
		return desired
	}

	suffix := 2
	for {
		candidate := fmt.Sprintf("%s (%d)", desired, suffix)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
		suffix++
	}
}

// loadOrCreateProfile returns the stored profile for the name, or generates,
// persists, and returns the deterministic default. Store read failures fall
// back to the default without persisting.
func (h *Hub) loadOrCreateProfile(ctx context.Context, username string) UserProfile {
	stored, err := h.profiles.Get(ctx, username)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("username", username).
			Msg("Profile lookup failed. Using generated default.")
		return DefaultProfile(username)
	}
	if stored != nil {
		return *stored
	}

	profile := DefaultProfile(username)
	if err := h.profiles.Put(ctx, username, profile); err != nil {
		h.logger.Warn().Err(err).
			Str("username", username).
			Msg("Failed to persist generated default profile.")
	}
	return profile
}
