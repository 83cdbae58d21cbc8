package chat

import "context"

// ProfileStore persists user profiles keyed by display name. A nil profile
// with a nil error from Get means "no stored profile"; the hub then falls
// back to a generated default. Store failures must never fail a join.
type ProfileStore interface {
	Get(ctx context.Context, username string) (*UserProfile, error)
	Put(ctx context.Context, username string, profile UserProfile) error
}
