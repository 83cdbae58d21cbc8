/*
Package chat contains the core logic for the planning-poker chat rooms.

This file defines the Room struct: a named, ephemeral, insertion-ordered set
of sessions. Rooms are created lazily on first join and removed synchronously
by whatever mutation empties them; an empty room never lingers in the
registry. Membership order is the order shown to new joiners.
*/
package chat

// Room is one named set of currently-joined sessions.
type Room struct {
	// Name is the natural key of the room.
	Name string

	// members maps sessionId to the member session.
	members map[string]*Session

	// order holds sessionIds in join order. Re-adding an existing member
	// keeps its original position.
	order []string
}

// newRoom creates an empty room.
func newRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[string]*Session),
	}
}

// add inserts the session, appending to the membership order unless the
// session is already a member.
func (r *Room) add(s *Session) {
	if _, ok := r.members[s.SessionID]; !ok {
		r.order = append(r.order, s.SessionID)
	}
	r.members[s.SessionID] = s
}

// remove deletes the session from the room. Unknown ids are ignored.
func (r *Room) remove(sessionID string) {
	if _, ok := r.members[sessionID]; !ok {
		return
	}

	delete(r.members, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the current member count.
func (r *Room) Len() int {
	return len(r.members)
}

// Sessions returns the member sessions in membership order.
func (r *Room) Sessions() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id])
	}
	return out
}

// usernames collects the display names currently taken in the room.
func (r *Room) usernames() map[string]struct{} {
	taken := make(map[string]struct{}, len(r.members))
	for _, s := range r.members {
		taken[s.Username] = struct{}{}
	}
	return taken
}
