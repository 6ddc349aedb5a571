package redis

import (
	"fmt"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

// Key prefix for all session data
const keyPrefix = "shra"

// Session hash fields
const (
	fieldState     = "state"
	fieldRound     = "round"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// sessionKey returns the Redis key for a session HASH
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// playersKey returns the Redis key for the HASH of player id -> player JSON
func playersKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s:players", keyPrefix, id)
}

// joinOrderKey returns the Redis key for the LIST of player ids in join order
func joinOrderKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s:order", keyPrefix, id)
}

// nameIndexKey returns the Redis key for the name key -> player id HASH
func nameIndexKey(id model.SessionID) string {
	return fmt.Sprintf("%s:idx:names:%s", keyPrefix, id)
}

// tokenIndexKey returns the Redis key for the token digest -> player id HASH
func tokenIndexKey(id model.SessionID) string {
	return fmt.Sprintf("%s:idx:tokens:%s", keyPrefix, id)
}

// eventsKey returns the Redis key for the LIST of event JSON, oldest first
func eventsKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s:events", keyPrefix, id)
}

// allSessionKeys returns every key owned by a session
func allSessionKeys(id model.SessionID) []string {
	return []string{
		sessionKey(id),
		playersKey(id),
		joinOrderKey(id),
		nameIndexKey(id),
		tokenIndexKey(id),
		eventsKey(id),
	}
}
