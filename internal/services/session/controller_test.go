package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/mocks"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/auth"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/roles"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/memory"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.clock.Step = time.Second
	s.random = mocks.NewMockRandom()
	authService := auth.New(s.storage, s.random)
	s.controller = NewController(s.storage, authService, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

var fiveNames = []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

// createSession creates a session and returns its id
func (s *ControllerSuite) createSession() string {
	session, err := s.controller.Create(s.ctx)
	s.Require().NoError(err)
	return string(session.ID)
}

// eventMessages returns just the messages of a session's events
func eventMessages(events []EventView) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Message)
	}
	return out
}

// join adds players and returns their tokens by name
func (s *ControllerSuite) join(id string, names ...string) map[string]string {
	tokens := make(map[string]string, len(names))
	for _, name := range names {
		result, err := s.controller.Join(s.ctx, id, name)
		s.Require().NoError(err, name)
		tokens[name] = result.Token
	}
	return tokens
}

// startedWithRoles creates a started five-player session with round 1 dealt.
// With Intn always 0 the deck for five players comes out as
// liberal, liberal, fascist, hitler, liberal.
func (s *ControllerSuite) startedWithRoles() (string, map[string]string) {
	id := s.createSession()
	tokens := s.join(id, fiveNames...)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)
	_, err = s.controller.AssignRoles(s.ctx, id)
	s.Require().NoError(err)
	return id, tokens
}

// Create tests

func (s *ControllerSuite) TestCreateSucceeds() {
	s.random.QueueString("abcde")

	session, err := s.controller.Create(s.ctx)
	s.Require().NoError(err)

	s.Equal(model.SessionID("abcde"), session.ID)
	s.Equal(model.SessionStateAddPlayers, session.State)
	s.Equal(0, session.Round)

	stored, err := s.storage.GetSession(s.ctx, "abcde")
	s.Require().NoError(err)
	s.Equal(model.SessionStateAddPlayers, stored.State)
}

func (s *ControllerSuite) TestCreateRetriesOnCollision() {
	s.random.QueueString("abcde", "abcde", "fghij")

	_, err := s.controller.Create(s.ctx)
	s.Require().NoError(err)
	session, err := s.controller.Create(s.ctx)
	s.Require().NoError(err)

	s.Equal(model.SessionID("fghij"), session.ID)
}

func (s *ControllerSuite) TestCreateExhaustsAttempts() {
	s.random.QueueString("abcde")
	_, err := s.controller.Create(s.ctx)
	s.Require().NoError(err)

	for i := 0; i < CreateAttempts; i++ {
		s.random.QueueString("abcde")
	}
	_, err = s.controller.Create(s.ctx)
	s.ErrorIs(err, model.ErrSessionIDExhausted)
	s.Equal(model.KindConflict, model.KindOf(err))
}

// Join tests

func (s *ControllerSuite) TestJoinReturnsNameAndToken() {
	id := s.createSession()
	s.random.QueueToken("secret-token")

	result, err := s.controller.Join(s.ctx, id, "  Alice   Smith ")
	s.Require().NoError(err)

	s.Equal("Alice Smith", result.Name)
	s.Equal("secret-token", result.Token)

	player, err := s.storage.GetPlayerByNameKey(s.ctx, model.SessionID(id), "alice smith")
	s.Require().NoError(err)
	s.Equal(auth.Digest("secret-token"), player.TokenDigest)
	s.NotEqual("secret-token", player.TokenDigest)
	s.Equal(model.RoleUnassigned, player.Role)
}

func (s *ControllerSuite) TestJoinNameTakenIgnoresCaseAndSpacing() {
	id := s.createSession()
	s.join(id, "Bob")

	_, err := s.controller.Join(s.ctx, id, " bob ")
	s.ErrorIs(err, model.ErrNameTaken)
}

func (s *ControllerSuite) TestJoinInvalidName() {
	id := s.createSession()

	_, err := s.controller.Join(s.ctx, id, "   ")
	s.ErrorIs(err, model.ErrInvalidName)

	_, err = s.controller.Join(s.ctx, id, "abcdefghijklmnopqrstuvwxyz")
	s.ErrorIs(err, model.ErrInvalidName)
}

func (s *ControllerSuite) TestJoinInvalidSessionID() {
	_, err := s.controller.Join(s.ctx, "ab1", "Alice")
	s.ErrorIs(err, model.ErrInvalidSessionID)
}

func (s *ControllerSuite) TestJoinUnknownSession() {
	_, err := s.controller.Join(s.ctx, "zzzzz", "Alice")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestJoinAcceptsUppercaseSessionID() {
	s.random.QueueString("abcde")
	s.createSession()

	_, err := s.controller.Join(s.ctx, "ABCDE", "Alice")
	s.NoError(err)
}

func (s *ControllerSuite) TestJoinAfterStart() {
	id := s.createSession()
	s.join(id, fiveNames...)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)

	_, err = s.controller.Join(s.ctx, id, "Frank")
	s.ErrorIs(err, model.ErrAlreadyStarted)
}

func (s *ControllerSuite) TestJoinFull() {
	id := s.createSession()
	for i := 1; i <= model.MaxPlayers; i++ {
		s.join(id, fmt.Sprintf("Player%d", i))
	}

	_, err := s.controller.Join(s.ctx, id, "Late")
	s.ErrorIs(err, model.ErrSessionFull)

	// Capacity is checked before the name
	_, err = s.controller.Join(s.ctx, id, "")
	s.ErrorIs(err, model.ErrSessionFull)
}

func (s *ControllerSuite) TestJoinLegacyInactiveSession() {
	id := s.createSession()
	s.Require().NoError(s.storage.SetSessionState(s.ctx, model.SessionID(id), model.SessionStateInactive, s.clock.Now()))

	_, err := s.controller.Join(s.ctx, id, "Alice")
	s.Require().NoError(err)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.SessionStateAddPlayers, view.State)
}

func (s *ControllerSuite) TestConcurrentJoinsForLastSlot() {
	id := s.createSession()
	for i := 1; i < model.MaxPlayers; i++ {
		s.join(id, fmt.Sprintf("Player%d", i))
	}

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.controller.Join(context.Background(), id, fmt.Sprintf("Late%d", i))
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

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.MaxPlayers, view.PlayerCount)
}

// Start tests

func (s *ControllerSuite) TestStartPlayerCountBounds() {
	tests := []struct {
		players int
		wantErr error
	}{
		{players: 0, wantErr: model.ErrPlayerCountOutOfRange},
		{players: 4, wantErr: model.ErrPlayerCountOutOfRange},
		{players: 5},
		{players: 10},
	}
	for _, tt := range tests {
		id := s.createSession()
		for i := 1; i <= tt.players; i++ {
			s.join(id, fmt.Sprintf("Player%d", i))
		}

		state, err := s.controller.Start(s.ctx, id)
		if tt.wantErr != nil {
			s.ErrorIs(err, tt.wantErr, "players=%d", tt.players)
			continue
		}
		s.Require().NoError(err, "players=%d", tt.players)
		s.Equal(model.SessionStateActive, state)
	}
}

func (s *ControllerSuite) TestStartElevenPlayersRejected() {
	// Storage would never allow this through Join; seed it directly
	id := s.createSession()
	for i := 1; i <= 11; i++ {
		p := &model.Player{
			ID:          model.PlayerID(fmt.Sprintf("p%d", i)),
			SessionID:   model.SessionID(id),
			Name:        fmt.Sprintf("Player%d", i),
			NameKey:     fmt.Sprintf("player%d", i),
			TokenDigest: fmt.Sprintf("d%d", i),
		}
		s.Require().NoError(s.storage.InsertPlayer(s.ctx, p, 11))
	}

	_, err := s.controller.Start(s.ctx, id)
	s.ErrorIs(err, model.ErrPlayerCountOutOfRange)
}

// startingStore starts the session just before every insert, as if a Start
// request landed between Join's read and its write
type startingStore struct {
	*memory.Storage
}

func (st startingStore) InsertPlayer(ctx context.Context, player *model.Player, maxPlayers int) error {
	if err := st.SetSessionState(ctx, player.SessionID, model.SessionStateActive, time.Time{}); err != nil {
		return err
	}
	return st.Storage.InsertPlayer(ctx, player, maxPlayers)
}

func (s *ControllerSuite) TestJoinRacingStartIsRejected() {
	id := s.createSession()
	store := startingStore{Storage: s.storage}
	controller := NewController(store, auth.New(store, s.random), s.clock, s.random, testutil.NopLogger())

	_, err := controller.Join(s.ctx, id, "Alice")
	s.ErrorIs(err, model.ErrAlreadyStarted)

	players, err := s.storage.ListPlayers(s.ctx, model.SessionID(id))
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *ControllerSuite) TestStartStampsUpdatedAtFromClock() {
	id := s.createSession()
	s.join(id, fiveNames...)

	startedAt := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	s.clock.Set(startedAt)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)

	session, err := s.storage.GetSession(s.ctx, model.SessionID(id))
	s.Require().NoError(err)
	s.True(startedAt.Equal(session.UpdatedAt), "updated_at = %v", session.UpdatedAt)
}

func (s *ControllerSuite) TestStartTwice() {
	id := s.createSession()
	s.join(id, fiveNames...)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)

	_, err = s.controller.Start(s.ctx, id)
	s.ErrorIs(err, model.ErrAlreadyStarted)
}

func (s *ControllerSuite) TestStartLeavesRoundAndRoles() {
	id := s.createSession()
	s.join(id, fiveNames...)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(0, view.Round)
	s.Equal(model.SessionStateActive, view.State)

	players, err := s.storage.ListPlayers(s.ctx, model.SessionID(id))
	s.Require().NoError(err)
	for _, p := range players {
		s.False(p.HasRole())
	}
}

// AssignRoles tests

func (s *ControllerSuite) TestAssignBeforeStart() {
	id := s.createSession()
	s.join(id, fiveNames...)

	_, err := s.controller.AssignRoles(s.ctx, id)
	s.ErrorIs(err, model.ErrNotStarted)
}

func (s *ControllerSuite) TestAssignDealsComposition() {
	id := s.createSession()
	s.join(id, fiveNames...)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)

	round, err := s.controller.AssignRoles(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, round)

	players, err := s.storage.ListPlayers(s.ctx, model.SessionID(id))
	s.Require().NoError(err)
	counts := map[model.Role]int{}
	for _, p := range players {
		counts[p.Role]++
	}
	want := map[model.Role]int{}
	for _, r := range roles.Composition(5) {
		want[r]++
	}
	s.Equal(want, counts)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, view.Round)
	s.Equal([]string{"Round 1: roles assigned."}, eventMessages(view.Events))
}

func (s *ControllerSuite) TestAssignAgainIncrementsRound() {
	id, _ := s.startedWithRoles()

	round, err := s.controller.AssignRoles(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(2, round)
}

func (s *ControllerSuite) TestAssignUnsupportedCountWritesNothing() {
	id := s.createSession()
	s.join(id, "Alice", "Bob", "Charlie", "Diana")
	s.Require().NoError(s.storage.SetSessionState(s.ctx, model.SessionID(id), model.SessionStateActive, s.clock.Now()))

	_, err := s.controller.AssignRoles(s.ctx, id)
	s.ErrorIs(err, model.ErrUnsupportedPlayerCount)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(0, view.Round)
	s.Empty(view.Events)
	players, err := s.storage.ListPlayers(s.ctx, model.SessionID(id))
	s.Require().NoError(err)
	for _, p := range players {
		s.False(p.HasRole())
	}
}

// End tests

func (s *ControllerSuite) TestEndDestroysSession() {
	id, _ := s.startedWithRoles()

	s.Require().NoError(s.controller.End(s.ctx, id))

	_, err := s.controller.View(s.ctx, id)
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.controller.Join(s.ctx, id, "Alice")
	s.ErrorIs(err, model.ErrSessionNotFound)

	players, err := s.storage.ListPlayers(s.ctx, model.SessionID(id))
	s.Require().NoError(err)
	s.Empty(players)
	events, err := s.storage.RecentEvents(s.ctx, model.SessionID(id), model.RecentEventLimit)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ControllerSuite) TestEndWhileAddingPlayers() {
	id := s.createSession()
	s.join(id, "Alice")

	s.NoError(s.controller.End(s.ctx, id))
}

func (s *ControllerSuite) TestEndUnknownSession() {
	s.ErrorIs(s.controller.End(s.ctx, "zzzzz"), model.ErrSessionNotFound)
}

// RevealRole tests

func (s *ControllerSuite) TestRevealBeforeAssign() {
	id := s.createSession()
	tokens := s.join(id, fiveNames...)

	message, err := s.controller.RevealRole(s.ctx, id, tokens["Alice"])
	s.Require().NoError(err)
	s.Equal("Roles are not assigned yet.", message)
}

func (s *ControllerSuite) TestRevealLiberal() {
	id, tokens := s.startedWithRoles()

	message, err := s.controller.RevealRole(s.ctx, id, tokens["Alice"])
	s.Require().NoError(err)
	s.Equal("Your role is liberal.", message)
}

func (s *ControllerSuite) TestRevealSmallTableHitler() {
	id, tokens := s.startedWithRoles()

	message, err := s.controller.RevealRole(s.ctx, id, tokens["Diana"])
	s.Require().NoError(err)
	s.Equal("Your role is hitler. Fascists are: (Charlie is fascist)", message)
}

func (s *ControllerSuite) TestRevealFascist() {
	id, tokens := s.startedWithRoles()

	message, err := s.controller.RevealRole(s.ctx, id, tokens["Charlie"])
	s.Require().NoError(err)
	s.Equal("Your role is fascist. Fascists are: (Diana is hitler)", message)
}

func (s *ControllerSuite) TestRevealMissingToken() {
	id, _ := s.startedWithRoles()

	_, err := s.controller.RevealRole(s.ctx, id, "")
	s.ErrorIs(err, model.ErrMissingToken)
}

func (s *ControllerSuite) TestRevealUnknownToken() {
	id, _ := s.startedWithRoles()

	_, err := s.controller.RevealRole(s.ctx, id, "not-a-token")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// ViewParty tests

func (s *ControllerSuite) TestViewPartyReportsParty() {
	id, tokens := s.startedWithRoles()

	tests := []struct {
		target string
		want   model.Party
	}{
		{"Charlie", model.PartyFascist},
		{"Diana", model.PartyFascist},
		{"Alice", model.PartyLiberal},
	}
	for _, tt := range tests {
		view, err := s.controller.ViewParty(s.ctx, id, tokens["Eve"], tt.target)
		s.Require().NoError(err, tt.target)
		s.Equal(tt.target, view.Name)
		s.Equal(tt.want, view.Party)
	}
}

func (s *ControllerSuite) TestViewPartyAppendsOneEvent() {
	id, tokens := s.startedWithRoles()

	_, err := s.controller.ViewParty(s.ctx, id, tokens["Eve"], " diana ")
	s.Require().NoError(err)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]string{
		"Round 1: roles assigned.",
		"Diana's party membership was viewed.",
	}, eventMessages(view.Events))
}

func (s *ControllerSuite) TestViewPartyMissingTarget() {
	id, tokens := s.startedWithRoles()

	_, err := s.controller.ViewParty(s.ctx, id, tokens["Eve"], "  ")
	s.ErrorIs(err, model.ErrMissingTarget)
}

func (s *ControllerSuite) TestViewPartyMissingToken() {
	id, _ := s.startedWithRoles()

	_, err := s.controller.ViewParty(s.ctx, id, "", "Alice")
	s.ErrorIs(err, model.ErrMissingToken)
}

func (s *ControllerSuite) TestViewPartyUnknownTokenAndTargetLookAlike() {
	id, tokens := s.startedWithRoles()

	_, err := s.controller.ViewParty(s.ctx, id, "bogus", "Alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.controller.ViewParty(s.ctx, id, tokens["Eve"], "Zed")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestViewPartyBeforeAssign() {
	id := s.createSession()
	tokens := s.join(id, fiveNames...)

	_, err := s.controller.ViewParty(s.ctx, id, tokens["Eve"], "Alice")
	s.ErrorIs(err, model.ErrRolesNotAssigned)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(view.Events)
}

// View tests

func (s *ControllerSuite) TestViewListsPlayersInJoinOrder() {
	id := s.createSession()
	s.join(id, "Charlie", "Alice", "Bob")

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.SessionID(id), view.ID)
	s.Equal([]string{"Charlie", "Alice", "Bob"}, view.Players)
	s.Equal(3, view.PlayerCount)
	s.Equal(model.SessionStateAddPlayers, view.State)
}

func (s *ControllerSuite) TestViewShowsLastSixEvents() {
	id, tokens := s.startedWithRoles()
	for i := 0; i < 3; i++ {
		_, err := s.controller.AssignRoles(s.ctx, id)
		s.Require().NoError(err)
	}
	for _, target := range []string{"Alice", "Bob", "Charlie"} {
		_, err := s.controller.ViewParty(s.ctx, id, tokens["Eve"], target)
		s.Require().NoError(err)
	}

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]string{
		"Round 2: roles assigned.",
		"Round 3: roles assigned.",
		"Round 4: roles assigned.",
		"Alice's party membership was viewed.",
		"Bob's party membership was viewed.",
		"Charlie's party membership was viewed.",
	}, eventMessages(view.Events))

	seen := map[model.EventID]bool{}
	for i, e := range view.Events {
		s.NotEmpty(e.ID)
		s.False(seen[e.ID], "duplicate event id %s", e.ID)
		seen[e.ID] = true
		s.True(e.CreatedAt.After(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))
		if i > 0 {
			s.True(e.CreatedAt.After(view.Events[i-1].CreatedAt), "events out of order at %d", i)
		}
	}
}

func (s *ControllerSuite) TestViewEventCarriesIDAndTimestamp() {
	id := s.createSession()
	s.join(id, fiveNames...)
	_, err := s.controller.Start(s.ctx, id)
	s.Require().NoError(err)

	s.random.QueueID("event-round-1")
	assignedAt := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	s.clock.Set(assignedAt)
	_, err = s.controller.AssignRoles(s.ctx, id)
	s.Require().NoError(err)

	view, err := s.controller.View(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(view.Events, 1)
	s.Equal(model.EventID("event-round-1"), view.Events[0].ID)
	s.Equal("Round 1: roles assigned.", view.Events[0].Message)
	// The round increment reads the clock first, then the event
	s.True(assignedAt.Add(time.Second).Equal(view.Events[0].CreatedAt))
}
