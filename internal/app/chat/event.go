/*
Package chat contains the core logic for the planning-poker chat rooms.

This file defines the wire protocol: the server-to-client events fanned out to
room members and the client-to-server action requests, together with the
schema validation applied before a request reaches the action handlers.
Requests that fail validation are dropped, never answered.
*/
package chat

import (
	"encoding/json"
	"fmt"
)

// Server-to-client event types.
const (
	EventJoin          = "JoinEvent"
	EventLeave         = "LeaveEvent"
	EventMessage       = "MessageEvent"
	EventTyping        = "TypingEvent"
	EventVote          = "VoteEvent"
	EventRevealVotes   = "RevealVotesEvent"
	EventClearVotes    = "ClearVotesEvent"
	EventProfileUpdate = "ProfileUpdateEvent"
)

// Client-to-server actions.
const (
	ActionConnect       = "connect"
	ActionJoinRoom      = "joinRoom"
	ActionLeaveRoom     = "leaveRoom"
	ActionSendMessage   = "sendMessage"
	ActionUserTyping    = "userTyping"
	ActionUserVote      = "userVote"
	ActionRevealVotes   = "revealVotes"
	ActionClearVoting   = "clearVoting"
	ActionUpdateProfile = "updateProfile"
)

// UserData is the externally visible state of one room member as carried in
// events. Vote is the outward-facing (possibly masked) vote.
type UserData struct {
	Username string       `json:"username"`
	PublicID string       `json:"publicId"`
	Vote     VoteType     `json:"vote,omitempty"`
	Profile  *UserProfile `json:"profile,omitempty"`
}

// UserVoteData is one entry of the unmasked tally carried by RevealVotesEvent.
type UserVoteData struct {
	Username string   `json:"username"`
	PublicID string   `json:"publicId"`
	Vote     VoteType `json:"vote"`
}

// EventHeader carries the fields common to every server event: the event type
// and the identity of the member the event is about.
type EventHeader struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	PublicID string `json:"publicId"`
}

// JoinEvent announces a new member. AllUsers is the complete current member
// list of the room, including the joiner, in membership order.
type JoinEvent struct {
	EventHeader
	Profile  UserProfile `json:"profile"`
	AllUsers []UserData  `json:"allUsers"`
}

// LeaveEvent announces a departed member.
type LeaveEvent struct {
	EventHeader
}

// MessageEvent carries one chat message.
type MessageEvent struct {
	EventHeader
	Message string `json:"message"`
}

// TypingEvent signals that a member is composing a message.
type TypingEvent struct {
	EventHeader
}

// VoteEvent announces a cast vote. Vote is masked to VoteHidden while the
// member's vote is concealed.
type VoteEvent struct {
	EventHeader
	Vote VoteType `json:"vote"`
}

// RevealVotesEvent carries the real, unmasked votes of every room member.
type RevealVotesEvent struct {
	EventHeader
	Votes []UserVoteData `json:"votes"`
}

// ClearVotesEvent announces that all votes were reset and re-concealed.
type ClearVotesEvent struct {
	EventHeader
}

// ProfileUpdateEvent announces a changed member profile.
type ProfileUpdateEvent struct {
	EventHeader
	Profile UserProfile `json:"profile"`
}

// InboundEvent is the decode-side superset of every server event, used by
// clients to consume the stream with a single unmarshal.
type InboundEvent struct {
	Type     string         `json:"type"`
	Username string         `json:"username"`
	PublicID string         `json:"publicId"`
	Vote     VoteType       `json:"vote,omitempty"`
	Profile  *UserProfile   `json:"profile,omitempty"`
	Message  string         `json:"message,omitempty"`
	AllUsers []UserData     `json:"allUsers,omitempty"`
	Votes    []UserVoteData `json:"votes,omitempty"`
}

// ClientRequest is the decoded form of one client-to-server action. The
// struct is a flat union; ParseClientRequest enforces the per-action shape.
type ClientRequest struct {
	Action    string       `json:"action"`
	SessionID string       `json:"sessionId"`
	RoomName  string       `json:"roomName,omitempty"`
	Username  string       `json:"username,omitempty"`
	Message   string       `json:"message,omitempty"`
	Vote      VoteType     `json:"vote,omitempty"`
	Profile   *UserProfile `json:"profile,omitempty"`
}

// ParseClientRequest decodes and validates one raw client frame. It returns
// an error for anything that fails schema validation; callers drop such
// frames without replying.
func ParseClientRequest(raw []byte) (*ClientRequest, error) {
	var req ClientRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}

	if req.SessionID == "" {
		return nil, fmt.Errorf("request %q is missing sessionId", req.Action)
	}

	switch req.Action {
	case ActionConnect, ActionJoinRoom, ActionLeaveRoom, ActionSendMessage,
		ActionUserTyping, ActionUserVote, ActionRevealVotes, ActionClearVoting,
		ActionUpdateProfile:
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}

	// Every action except connect addresses a room.
	if req.Action != ActionConnect && req.RoomName == "" {
		return nil, fmt.Errorf("%s request is missing roomName", req.Action)
	}

	switch req.Action {
	case ActionSendMessage:
		if req.Message == "" {
			return nil, fmt.Errorf("sendMessage request is missing message")
		}

	case ActionUserVote:
		if !req.Vote.IsValid() {
			return nil, fmt.Errorf("userVote request carries unknown vote %q", req.Vote)
		}

	case ActionUpdateProfile:
		if req.Profile == nil {
			return nil, fmt.Errorf("updateProfile request is missing profile")
		}
		if err := req.Profile.Validate(); err != nil {
			return nil, fmt.Errorf("updateProfile request rejected: %w", err)
		}
	}

	return &req, nil
}
