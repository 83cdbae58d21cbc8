/*
Package randx provides functions for generating cryptographically secure
session and participant identifiers.

Session ids are standard UUID v4 strings handed out by the session bootstrap
endpoint; public ids are short hex tokens safe to show to other participants.
*/
package randx

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// PublicIDBytes is the number of random bytes in a public id (12 hex chars).
const PublicIDBytes = 6

// SessionID generates a UUID v4 string identifying one logical session.
// It is the only credential a client holds, so it must be unguessable.
func SessionID() string {
	return uuid.New().String()
}

// PublicID generates a short hex token used as the externally visible
// identity of a participant. Decoupled from the session id so it never
// needs to stay secret.
func PublicID() (string, error) {
	buf := make([]byte, PublicIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes for public id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValidSessionID checks that the given string parses as a UUID.
func IsValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
