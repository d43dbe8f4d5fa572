package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const shareTokenBytes = 32

// NewShareToken returns an unguessable url-safe token for a share link
func NewShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidShareToken reports whether s has the shape NewShareToken produces.
// Lookups skip the database for anything else.
func ValidShareToken(s string) bool {
	if len(s) != base64.RawURLEncoding.EncodedLen(shareTokenBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}
