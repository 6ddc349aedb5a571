package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength is the longest display name accepted, in characters
const MaxNameLength = 24

// PlayerID uniquely identifies a player row
type PlayerID string

// Player is a named participant in a session
type Player struct {
	ID        PlayerID
	SessionID SessionID
	Name      string // Normalized display name
	NameKey   string // Lookup key, unique within a session

	// TokenDigest is the digest of the player's bearer token. The token
	// itself is only ever handed to the client.
	TokenDigest string

	Role     Role // RoleUnassigned until the first round
	JoinedAt time.Time
}

// HasRole returns true once the player has been dealt a role
func (p *Player) HasRole() bool {
	return p.Role != RoleUnassigned
}

// NormalizeName trims a display name and collapses inner whitespace
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NameKey returns the case-insensitive lookup key for a display name
func NameKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// ValidateName normalizes a display name and rejects empty or overlong names
func ValidateName(name string) (string, error) {
	normalized := NormalizeName(name)
	if normalized == "" || utf8.RuneCountInString(normalized) > MaxNameLength {
		return "", ErrInvalidName
	}
	return normalized, nil
}
