// Package storagetest holds the behaviour every storage backend must share.
// Backend test suites embed Suite and set Store in SetupTest.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

// BaseTime is a fixed instant with millisecond precision, which every
// backend can round-trip
var BaseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Suite is the shared conformance suite for storage.Storage
type Suite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

// NewSession returns an unsaved session in the add_players state
func NewSession(id model.SessionID) *model.Session {
	return &model.Session{
		ID:        id,
		State:     model.SessionStateAddPlayers,
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
}

// NewPlayer returns an unsaved player whose id and token digest derive from name
func NewPlayer(sessionID model.SessionID, name string, joinedAt time.Time) *model.Player {
	return &model.Player{
		ID:          model.PlayerID(fmt.Sprintf("%s-%s", sessionID, model.NameKey(name))),
		SessionID:   sessionID,
		Name:        name,
		NameKey:     model.NameKey(name),
		TokenDigest: "digest-" + model.NameKey(name),
		JoinedAt:    joinedAt,
	}
}

func (s *Suite) createSession(id model.SessionID) {
	s.Require().NoError(s.Store.CreateSession(s.Ctx, NewSession(id)))
}

func (s *Suite) addPlayers(id model.SessionID, names ...string) {
	for i, name := range names {
		p := NewPlayer(id, name, BaseTime.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.Store.InsertPlayer(s.Ctx, p, model.MaxPlayers))
	}
}

// Session tests

func (s *Suite) TestCreateAndGetSession() {
	s.createSession("abcde")

	session, err := s.Store.GetSession(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Equal(model.SessionID("abcde"), session.ID)
	s.Equal(model.SessionStateAddPlayers, session.State)
	s.Equal(0, session.Round)
	s.True(BaseTime.Equal(session.CreatedAt))
}

func (s *Suite) TestCreateSessionDuplicate() {
	s.createSession("abcde")

	err := s.Store.CreateSession(s.Ctx, NewSession("abcde"))
	s.ErrorIs(err, model.ErrSessionExists)
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Store.GetSession(s.Ctx, "zzzzz")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestSetSessionState() {
	s.createSession("abcde")

	later := BaseTime.Add(time.Minute)
	s.Require().NoError(s.Store.SetSessionState(s.Ctx, "abcde", model.SessionStateActive, later))

	session, err := s.Store.GetSession(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Equal(model.SessionStateActive, session.State)
	s.True(later.Equal(session.UpdatedAt), "updated_at = %v", session.UpdatedAt)
	s.True(BaseTime.Equal(session.CreatedAt))
}

func (s *Suite) TestSetSessionStateNotFound() {
	err := s.Store.SetSessionState(s.Ctx, "zzzzz", model.SessionStateActive, BaseTime)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestIncrementRound() {
	s.createSession("abcde")

	round, err := s.Store.IncrementRound(s.Ctx, "abcde", BaseTime.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(1, round)

	round, err = s.Store.IncrementRound(s.Ctx, "abcde", BaseTime.Add(2*time.Second))
	s.Require().NoError(err)
	s.Equal(2, round)

	session, err := s.Store.GetSession(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Equal(2, session.Round)
	s.True(BaseTime.Add(2*time.Second).Equal(session.UpdatedAt), "updated_at = %v", session.UpdatedAt)
}

func (s *Suite) TestIncrementRoundNotFound() {
	_, err := s.Store.IncrementRound(s.Ctx, "zzzzz", BaseTime)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestDeleteSessionCascades() {
	s.createSession("abcde")
	s.addPlayers("abcde", "Alice", "Bob")
	s.Require().NoError(s.Store.AppendEvent(s.Ctx, &model.Event{
		ID: "e1", SessionID: "abcde", Type: model.EventRolesAssigned, Message: "Round 1: roles assigned.", CreatedAt: BaseTime,
	}))

	s.Require().NoError(s.Store.DeleteSession(s.Ctx, "abcde"))

	_, err := s.Store.GetSession(s.Ctx, "abcde")
	s.ErrorIs(err, model.ErrSessionNotFound)

	players, err := s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Empty(players)

	events, err := s.Store.RecentEvents(s.Ctx, "abcde", model.RecentEventLimit)
	s.Require().NoError(err)
	s.Empty(events)

	_, err = s.Store.GetPlayerByNameKey(s.Ctx, "abcde", "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	// The id can be reused once deleted
	s.createSession("abcde")
	players, err = s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestDeleteSessionNotFoundIsNoop() {
	s.NoError(s.Store.DeleteSession(s.Ctx, "zzzzz"))
}

// Player tests

func (s *Suite) TestInsertAndListPlayersInJoinOrder() {
	s.createSession("abcde")
	s.addPlayers("abcde", "Charlie", "Alice", "Bob")

	players, err := s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal("Charlie", players[0].Name)
	s.Equal("Alice", players[1].Name)
	s.Equal("Bob", players[2].Name)
	s.Equal(model.RoleUnassigned, players[0].Role)
	s.Equal("digest-charlie", players[0].TokenDigest)
	s.True(BaseTime.Equal(players[0].JoinedAt))
}

func (s *Suite) TestInsertPlayerSessionNotFound() {
	err := s.Store.InsertPlayer(s.Ctx, NewPlayer("zzzzz", "Alice", BaseTime), model.MaxPlayers)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestInsertPlayerAfterStart() {
	s.createSession("abcde")
	s.addPlayers("abcde", "A", "B", "C", "D", "E")
	s.Require().NoError(s.Store.SetSessionState(s.Ctx, "abcde", model.SessionStateActive, BaseTime))

	err := s.Store.InsertPlayer(s.Ctx, NewPlayer("abcde", "Late", BaseTime), model.MaxPlayers)
	s.ErrorIs(err, model.ErrAlreadyStarted)

	players, err := s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Len(players, 5)
}

func (s *Suite) TestInsertPlayerLegacyInactiveState() {
	s.createSession("abcde")
	s.Require().NoError(s.Store.SetSessionState(s.Ctx, "abcde", model.SessionStateInactive, BaseTime))

	s.NoError(s.Store.InsertPlayer(s.Ctx, NewPlayer("abcde", "Alice", BaseTime), model.MaxPlayers))
}

func (s *Suite) TestInsertPlayerNameTaken() {
	s.createSession("abcde")
	s.addPlayers("abcde", "Bob")

	dup := NewPlayer("abcde", "BOB", BaseTime)
	dup.ID = "other"
	dup.TokenDigest = "other"
	err := s.Store.InsertPlayer(s.Ctx, dup, model.MaxPlayers)
	s.ErrorIs(err, model.ErrNameTaken)
}

func (s *Suite) TestInsertPlayerSameNameOtherSession() {
	s.createSession("abcde")
	s.createSession("fghij")
	s.addPlayers("abcde", "Bob")

	err := s.Store.InsertPlayer(s.Ctx, NewPlayer("fghij", "Bob", BaseTime), model.MaxPlayers)
	s.NoError(err)
}

func (s *Suite) TestInsertPlayerFull() {
	s.createSession("abcde")
	s.addPlayers("abcde", "A", "B", "C", "D", "E", "F", "G", "H", "I", "J")

	err := s.Store.InsertPlayer(s.Ctx, NewPlayer("abcde", "K", BaseTime), model.MaxPlayers)
	s.ErrorIs(err, model.ErrSessionFull)

	players, err := s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Len(players, model.MaxPlayers)
}

func (s *Suite) TestInsertPlayerConcurrentLastSlot() {
	s.createSession("abcde")
	s.addPlayers("abcde", "A", "B", "C", "D", "E", "F", "G", "H", "I")

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := NewPlayer("abcde", fmt.Sprintf("Late%d", i), BaseTime.Add(time.Minute))
			errs[i] = s.Store.InsertPlayer(context.Background(), p, model.MaxPlayers)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(errors.Is(err, model.ErrSessionFull), "unexpected error: %v", err)
	}
	s.Equal(1, succeeded)

	players, err := s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Len(players, model.MaxPlayers)
}

func (s *Suite) TestInsertPlayerConcurrentSameName() {
	s.createSession("abcde")

	const contenders = 6
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := NewPlayer("abcde", "Bob", BaseTime)
			p.ID = model.PlayerID(fmt.Sprintf("bob-%d", i))
			p.TokenDigest = fmt.Sprintf("digest-%d", i)
			errs[i] = s.Store.InsertPlayer(context.Background(), p, model.MaxPlayers)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(errors.Is(err, model.ErrNameTaken), "unexpected error: %v", err)
	}
	s.Equal(1, succeeded)
}

func (s *Suite) TestGetPlayerByToken() {
	s.createSession("abcde")
	s.addPlayers("abcde", "Alice", "Bob")

	player, err := s.Store.GetPlayerByToken(s.Ctx, "abcde", "digest-bob")
	s.Require().NoError(err)
	s.Equal("Bob", player.Name)

	_, err = s.Store.GetPlayerByToken(s.Ctx, "abcde", "digest-nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayerByTokenScopedToSession() {
	s.createSession("abcde")
	s.createSession("fghij")
	s.addPlayers("abcde", "Alice")

	_, err := s.Store.GetPlayerByToken(s.Ctx, "fghij", "digest-alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayerByNameKey() {
	s.createSession("abcde")
	s.addPlayers("abcde", "Alice")

	player, err := s.Store.GetPlayerByNameKey(s.Ctx, "abcde", "alice")
	s.Require().NoError(err)
	s.Equal("Alice", player.Name)

	_, err = s.Store.GetPlayerByNameKey(s.Ctx, "abcde", "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSetPlayerRoles() {
	s.createSession("abcde")
	s.addPlayers("abcde", "Alice", "Bob")

	players, err := s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)

	err = s.Store.SetPlayerRoles(s.Ctx, "abcde", map[model.PlayerID]model.Role{
		players[0].ID: model.RoleHitler,
		players[1].ID: model.RoleLiberal,
	})
	s.Require().NoError(err)

	players, err = s.Store.ListPlayers(s.Ctx, "abcde")
	s.Require().NoError(err)
	s.Equal(model.RoleHitler, players[0].Role)
	s.Equal(model.RoleLiberal, players[1].Role)

	bob, err := s.Store.GetPlayerByNameKey(s.Ctx, "abcde", "bob")
	s.Require().NoError(err)
	s.Equal(model.RoleLiberal, bob.Role)
}

// Event tests

func (s *Suite) TestRecentEventsOldestFirst() {
	s.createSession("abcde")
	for i := 1; i <= 8; i++ {
		s.Require().NoError(s.Store.AppendEvent(s.Ctx, &model.Event{
			ID:        model.EventID(fmt.Sprintf("e%d", i)),
			SessionID: "abcde",
			Type:      model.EventRolesAssigned,
			Message:   model.RolesAssignedMessage(i),
			CreatedAt: BaseTime.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := s.Store.RecentEvents(s.Ctx, "abcde", model.RecentEventLimit)
	s.Require().NoError(err)
	s.Require().Len(events, model.RecentEventLimit)
	s.Equal("Round 3: roles assigned.", events[0].Message)
	s.Equal("Round 8: roles assigned.", events[5].Message)
	s.Equal(model.EventRolesAssigned, events[5].Type)
	s.True(BaseTime.Add(8 * time.Second).Equal(events[5].CreatedAt))
}

func (s *Suite) TestRecentEventsEmpty() {
	s.createSession("abcde")

	events, err := s.Store.RecentEvents(s.Ctx, "abcde", model.RecentEventLimit)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *Suite) TestAppendEventSessionNotFound() {
	err := s.Store.AppendEvent(s.Ctx, &model.Event{
		ID: "e1", SessionID: "zzzzz", Type: model.EventRolesAssigned, Message: "Round 1: roles assigned.", CreatedAt: BaseTime,
	})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestAppendEventAfterDelete() {
	s.createSession("abcde")
	s.Require().NoError(s.Store.DeleteSession(s.Ctx, "abcde"))

	err := s.Store.AppendEvent(s.Ctx, &model.Event{
		ID: "e1", SessionID: "abcde", Type: model.EventPartyViewed, Message: "Bob's party membership was viewed.", CreatedAt: BaseTime,
	})
	s.ErrorIs(err, model.ErrSessionNotFound)

	// A later session under the same id starts with an empty log
	s.createSession("abcde")
	events, err := s.Store.RecentEvents(s.Ctx, "abcde", model.RecentEventLimit)
	s.Require().NoError(err)
	s.Empty(events)
}
