/*
Package chat contains the core logic for the planning-poker chat rooms.

This file defines the Session struct, the connection-independent identity of
one participant, and the Transport capability it may hold while a live socket
is attached. A session outlives socket churn; it is removed only by an
explicit leave (or the disconnect that implies one).
*/
package chat

// Transport is the delivery capability of one live connection. Deliver must
// not block: an implementation queues the payload and reports whether it was
// accepted. A recipient whose transport is not open is skipped, never awaited.
type Transport interface {
	// Deliver queues one serialized event for the peer. It returns false when
	// the payload was dropped (closed connection or full queue).
	Deliver(payload []byte) bool

	// IsOpen reports whether the underlying connection is still usable.
	IsOpen() bool
}

// Session is the server-side identity of one participant across reconnects.
type Session struct {
	// SessionID is the primary key, held only by the owning client.
	SessionID string

	// PublicID is the stable identity shown to other participants.
	PublicID string

	// Username is the de-duplicated display name in scope for the joined
	// room; empty until a room is joined.
	Username string

	// RoomName is the currently joined room, or empty.
	RoomName string

	// CurrentVote is the participant's true vote. Other clients only ever
	// see it through the masking in buildUserData.
	CurrentVote VoteType

	// VoteHidden marks the vote as concealed. True by default and after
	// every join or clear; flipped to false for the whole room on reveal.
	VoteHidden bool

	// Profile is loaded or created per display name on join.
	Profile UserProfile

	// transport is the attached live connection, nil while detached.
	transport Transport
}

// buildUserData projects the session into its externally visible form,
// masking the vote while it is concealed. The no-vote sentinel is never
// masked since it carries no information.
func buildUserData(s *Session) UserData {
	vote := s.CurrentVote
	if s.VoteHidden && s.CurrentVote != VoteUnvote {
		vote = VoteHidden
	}

	profile := s.Profile
	return UserData{
		Username: s.Username,
		PublicID: s.PublicID,
		Vote:     vote,
		Profile:  &profile,
	}
}
