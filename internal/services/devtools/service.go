// Package devtools holds operator helpers for exercising a session without
// a full table of real players. Every operation is refused unless dev mode
// is enabled.
package devtools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/session"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

// NotAssignedLabel is shown in place of an empty role
const NotAssignedLabel = "(not assigned)"

// FakeNames are used, in order, when filling a session with players
var FakeNames = []string{
	"Alice", "Bob", "Charlie", "Diana", "Eve",
	"Frank", "Grace", "Henry", "Ivy", "Jack",
}

// PlayerRole is one row of the dev roster
type PlayerRole struct {
	Name string
	Role string
}

// Roster is the unrestricted view of a session
type Roster struct {
	ID      model.SessionID
	State   model.SessionState
	Round   int
	Players []PlayerRole
}

// Service implements the dev-only operations
type Service struct {
	enabled    bool
	storage    storage.Storage
	controller *session.Controller
	logger     *slog.Logger
}

// New creates a new devtools Service
func New(enabled bool, storage storage.Storage, controller *session.Controller, logger *slog.Logger) *Service {
	return &Service{
		enabled:    enabled,
		storage:    storage,
		controller: controller,
		logger:     logger,
	}
}

// Status reports whether dev mode is on
func (s *Service) Status() bool {
	return s.enabled
}

// AddPlayers joins up to count fake players, clamped to [1, MaxPlayers].
// Names already in the session are skipped.
func (s *Service) AddPlayers(ctx context.Context, rawID string, count int) ([]*session.JoinResult, error) {
	if !s.enabled {
		return nil, model.ErrDevModeDisabled
	}
	count = max(1, min(count, model.MaxPlayers))

	id, err := model.ParseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	sess, err := s.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.State.CanAddPlayers() {
		return nil, model.ErrAlreadyStarted
	}

	players, err := s.storage.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	slots := model.MaxPlayers - len(players)
	if slots <= 0 {
		return nil, model.ErrSessionFull
	}
	taken := make(map[string]bool, len(players))
	for _, p := range players {
		taken[p.NameKey] = true
	}

	want := min(count, slots)
	added := make([]*session.JoinResult, 0, want)
	for _, name := range candidateNames() {
		if len(added) == want {
			break
		}
		if taken[model.NameKey(name)] {
			continue
		}
		result, err := s.controller.Join(ctx, string(id), name)
		switch {
		case errors.Is(err, model.ErrNameTaken):
			continue
		case errors.Is(err, model.ErrSessionFull):
			return s.finish(id, added)
		case err != nil:
			return nil, err
		}
		added = append(added, result)
	}
	return s.finish(id, added)
}

func (s *Service) finish(id model.SessionID, added []*session.JoinResult) ([]*session.JoinResult, error) {
	if len(added) == 0 {
		return nil, model.ErrSessionFull
	}
	s.logger.Info("dev players added",
		slog.String("session_id", string(id)),
		slog.Int("count", len(added)),
	)
	return added, nil
}

// candidateNames yields the fixed fake names followed by numbered fallbacks
func candidateNames() []string {
	names := make([]string, 0, len(FakeNames)+2*model.MaxPlayers)
	names = append(names, FakeNames...)
	for i := 1; i <= 2*model.MaxPlayers; i++ {
		names = append(names, fmt.Sprintf("Player%d", i))
	}
	return names
}

// Roles returns every player's role, including unassigned ones
func (s *Service) Roles(ctx context.Context, rawID string) (*Roster, error) {
	if !s.enabled {
		return nil, model.ErrDevModeDisabled
	}
	id, err := model.ParseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	sess, err := s.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	players, err := s.storage.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}

	roster := &Roster{
		ID:      sess.ID,
		State:   sess.State.Normalize(),
		Round:   sess.Round,
		Players: make([]PlayerRole, 0, len(players)),
	}
	for _, p := range players {
		role := string(p.Role)
		if p.Role == model.RoleUnassigned {
			role = NotAssignedLabel
		}
		roster.Players = append(roster.Players, PlayerRole{Name: p.Name, Role: role})
	}
	return roster, nil
}
