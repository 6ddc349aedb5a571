package model

import (
	"strings"
	"time"
)

const (
	// SessionIDLength is the length of generated session codes
	SessionIDLength = 5
	// SessionIDAlphabet is the characters used in session codes
	SessionIDAlphabet = "abcdefghijklmnopqrstuvwxyz"

	// MinPlayers is the smallest roster that can start a session
	MinPlayers = 5
	// MaxPlayers is the largest roster a session accepts
	MaxPlayers = 10

	// RecentEventLimit is how many events are surfaced to clients
	RecentEventLimit = 6
)

// SessionID is the short code players use to find a session
type SessionID string

// ParseSessionID lower-cases raw and checks it has the shape of a session code
func ParseSessionID(raw string) (SessionID, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if len(id) != SessionIDLength {
		return "", ErrInvalidSessionID
	}
	for _, r := range id {
		if !strings.ContainsRune(SessionIDAlphabet, r) {
			return "", ErrInvalidSessionID
		}
	}
	return SessionID(id), nil
}

// SessionState represents the lifecycle phase of a session
type SessionState string

const (
	SessionStateAddPlayers SessionState = "add_players" // Accepting new players
	SessionStateActive     SessionState = "active"      // Roster locked, roles may be assigned

	// SessionStateInactive is an older name for add_players still found in
	// rows written by earlier deployments. It is never written.
	SessionStateInactive SessionState = "inactive"
)

// Normalize maps legacy state names onto their canonical value
func (s SessionState) Normalize() SessionState {
	if s == SessionStateInactive {
		return SessionStateAddPlayers
	}
	return s
}

// CanAddPlayers returns true if players may still join
func (s SessionState) CanAddPlayers() bool {
	return s.Normalize() == SessionStateAddPlayers
}

// Session is one game instance
type Session struct {
	ID        SessionID
	State     SessionState
	Round     int // Incremented every time roles are assigned
	CreatedAt time.Time
	UpdatedAt time.Time
}
