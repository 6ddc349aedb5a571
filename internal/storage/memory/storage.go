package memory

import (
	"context"
	"sync"
	"time"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	sessions map[model.SessionID]*model.Session
	players  map[model.SessionID][]*model.Player // Join order
	events   map[model.SessionID][]*model.Event
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions: make(map[model.SessionID]*model.Session),
		players:  make(map[model.SessionID][]*model.Player),
		events:   make(map[model.SessionID][]*model.Event),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return model.ErrSessionExists
	}
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

func (s *Storage) SetSessionState(ctx context.Context, id model.SessionID, state model.SessionState, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	session.State = state
	session.UpdatedAt = updatedAt
	return nil
}

func (s *Storage) IncrementRound(ctx context.Context, id model.SessionID, updatedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return 0, model.ErrSessionNotFound
	}
	session.Round++
	session.UpdatedAt = updatedAt
	return session.Round, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	delete(s.events, id)
	delete(s.sessions, id)
	return nil
}

// Player operations

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player, maxPlayers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[player.SessionID]
	if !ok {
		return model.ErrSessionNotFound
	}
	if !session.State.CanAddPlayers() {
		return model.ErrAlreadyStarted
	}
	roster := s.players[player.SessionID]
	if len(roster) >= maxPlayers {
		return model.ErrSessionFull
	}
	for _, existing := range roster {
		if existing.NameKey == player.NameKey {
			return model.ErrNameTaken
		}
	}
	stored := *player
	s.players[player.SessionID] = append(roster, &stored)
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context, id model.SessionID) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roster := s.players[id]
	result := make([]*model.Player, 0, len(roster))
	for _, p := range roster {
		out := *p
		result = append(result, &out)
	}
	return result, nil
}

func (s *Storage) GetPlayerByToken(ctx context.Context, id model.SessionID, tokenDigest string) (*model.Player, error) {
	return s.findPlayer(id, func(p *model.Player) bool {
		return p.TokenDigest == tokenDigest
	})
}

func (s *Storage) GetPlayerByNameKey(ctx context.Context, id model.SessionID, nameKey string) (*model.Player, error) {
	return s.findPlayer(id, func(p *model.Player) bool {
		return p.NameKey == nameKey
	})
}

func (s *Storage) findPlayer(id model.SessionID, match func(*model.Player) bool) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players[id] {
		if match(p) {
			out := *p
			return &out, nil
		}
	}
	return nil, model.ErrPlayerNotFound
}

func (s *Storage) SetPlayerRoles(ctx context.Context, id model.SessionID, roles map[model.PlayerID]model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players[id] {
		if role, ok := roles[p.ID]; ok {
			p.Role = role
		}
	}
	return nil
}

// Event operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[event.SessionID]; !ok {
		return model.ErrSessionNotFound
	}
	stored := *event
	s.events[event.SessionID] = append(s.events[event.SessionID], &stored)
	return nil
}

func (s *Storage) RecentEvents(ctx context.Context, id model.SessionID, limit int) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[id]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	result := make([]*model.Event, 0, len(events))
	for _, e := range events {
		out := *e
		result = append(result, &out)
	}
	return result, nil
}
