package storage

import (
	"context"
	"time"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

// Storage defines the interface for data persistence.
//
// Implementations translate backend-specific failures into the model's
// sentinel errors so callers never see driver types.
type Storage interface {
	// Session operations

	// CreateSession inserts a new session, failing with ErrSessionExists if
	// the id is already in use
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	// SetSessionState changes the state and stamps updatedAt
	SetSessionState(ctx context.Context, id model.SessionID, state model.SessionState, updatedAt time.Time) error
	// IncrementRound atomically bumps the round counter, stamps updatedAt and
	// returns the new value
	IncrementRound(ctx context.Context, id model.SessionID, updatedAt time.Time) (int, error)
	// DeleteSession removes a session with all of its players and events
	DeleteSession(ctx context.Context, id model.SessionID) error

	// Player operations

	// InsertPlayer adds a player if the session is still accepting players,
	// has fewer than maxPlayers players and no player with the same name key.
	// The checks and the insert happen atomically. A started session fails
	// with ErrAlreadyStarted.
	InsertPlayer(ctx context.Context, player *model.Player, maxPlayers int) error
	// ListPlayers returns a session's players in join order
	ListPlayers(ctx context.Context, id model.SessionID) ([]*model.Player, error)
	GetPlayerByToken(ctx context.Context, id model.SessionID, tokenDigest string) (*model.Player, error)
	GetPlayerByNameKey(ctx context.Context, id model.SessionID, nameKey string) (*model.Player, error)
	SetPlayerRoles(ctx context.Context, id model.SessionID, roles map[model.PlayerID]model.Role) error

	// Event operations

	// AppendEvent fails with ErrSessionNotFound once the session is gone
	AppendEvent(ctx context.Context, event *model.Event) error
	// RecentEvents returns up to limit of the newest events, oldest first
	RecentEvents(ctx context.Context, id model.SessionID, limit int) ([]*model.Event, error)

	Close() error
}
