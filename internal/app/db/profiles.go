/*
Package db provides the PostgreSQL-backed profile store.

This file implements the profile queries: a keyed lookup and an upsert of one
profile row per display name. The avatar attributes are stored as a JSONB
column so the schema does not chase the avatar option sets.
*/
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pokerchat/internal/app/chat"
)

// ProfileStore is the pgx-backed implementation of chat.ProfileStore.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore wraps the connection pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Get returns the stored profile for the display name, or nil when none is
// stored.
func (s *ProfileStore) Get(ctx context.Context, username string) (*chat.UserProfile, error) {
	const query = `SELECT color, avatar_config FROM user_profiles WHERE username = $1`

	var (
		color      string
		avatarJSON []byte
	)

	err := s.pool.QueryRow(ctx, query, username).Scan(&color, &avatarJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %q: %w", username, err)
	}

	var avatar chat.AvatarConfig
	if err := json.Unmarshal(avatarJSON, &avatar); err != nil {
		return nil, fmt.Errorf("failed to decode stored avatar for %q: %w", username, err)
	}

	return &chat.UserProfile{Color: color, AvatarConfig: avatar}, nil
}

// Put upserts the profile row for the display name.
func (s *ProfileStore) Put(ctx context.Context, username string, profile chat.UserProfile) error {
	const query = `
		INSERT INTO user_profiles (username, color, avatar_config, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (username) DO UPDATE
		SET color = EXCLUDED.color, avatar_config = EXCLUDED.avatar_config, updated_at = now()`

	avatarJSON, err := json.Marshal(profile.AvatarConfig)
	if err != nil {
		return fmt.Errorf("failed to encode avatar for %q: %w", username, err)
	}

	if _, err := s.pool.Exec(ctx, query, username, profile.Color, avatarJSON); err != nil {
		return fmt.Errorf("failed to upsert profile for %q: %w", username, err)
	}

	return nil
}
