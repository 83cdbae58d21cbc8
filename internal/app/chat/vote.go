/*
Package chat contains the core logic for the planning-poker chat rooms: session
and room registries, the action handlers that mutate them, and the broadcast
fan-out to connected participants.

This file defines the vote enumeration shared by the server and client halves.
*/
package chat

// VoteType is one value of the fixed planning-poker card deck, plus the two
// special markers: VoteUnvote (no vote cast) and VoteHidden (a concealed vote
// as shown to other participants before a reveal).
type VoteType string

const (
	VoteUnvote    VoteType = "UNVOTE"
	VoteHidden    VoteType = "HIDDEN"
	VoteQuestion  VoteType = "QUESTION"
	VoteBreak     VoteType = "BREAK"
	VoteZero      VoteType = "ZERO"
	VoteHalf      VoteType = "HALF"
	VoteOne       VoteType = "ONE"
	VoteTwo       VoteType = "TWO"
	VoteThree     VoteType = "THREE"
	VoteFive      VoteType = "FIVE"
	VoteEight     VoteType = "EIGHT"
	VoteThirteen  VoteType = "THIRTEEN"
	VoteTwentyOne VoteType = "TWENTY_ONE"
)

// voteLabels maps each vote to its display label.
var voteLabels = map[VoteType]string{
	VoteQuestion:  "?",
	VoteBreak:     "☕",
	VoteZero:      "0",
	VoteHalf:      "½",
	VoteOne:       "1",
	VoteTwo:       "2",
	VoteThree:     "3",
	VoteFive:      "5",
	VoteEight:     "8",
	VoteThirteen:  "13",
	VoteTwentyOne: "21",
	VoteHidden:    "✓",
	VoteUnvote:    "",
}

// Label returns the display label for the vote ("?" for QUESTION, "5" for
// FIVE, an empty string for UNVOTE).
func (v VoteType) Label() string {
	return voteLabels[v]
}

// IsValid reports whether v is a member of the vote enumeration.
func (v VoteType) IsValid() bool {
	_, ok := voteLabels[v]
	return ok
}
