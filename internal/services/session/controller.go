package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/clock"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/random"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/auth"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/disclosure"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/roles"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

// CreateAttempts is how many fresh ids Create tries before giving up
const CreateAttempts = 6

// JoinResult is returned once to a player when they join. The token is
// never retrievable again.
type JoinResult struct {
	Name  string
	Token string
}

// EventView is one public log line of a session
type EventView struct {
	ID        model.EventID
	Message   string
	CreatedAt time.Time
}

// SessionView is the public state of a session. It never contains roles or tokens.
type SessionView struct {
	ID          model.SessionID
	State       model.SessionState
	Round       int
	Players     []string // Join order
	PlayerCount int
	Events      []EventView // Oldest first
}

// Controller manages the session state machine and role protocol
type Controller struct {
	storage storage.Storage
	auth    *auth.Service
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewController creates a new session Controller
func NewController(
	storage storage.Storage,
	auth *auth.Service,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: storage,
		auth:    auth,
		clock:   clock,
		random:  random,
		logger:  logger,
	}
}

// load parses a raw session id and fetches the session
func (c *Controller) load(ctx context.Context, rawID string) (*model.Session, error) {
	id, err := model.ParseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	return c.storage.GetSession(ctx, id)
}

// Create starts a new session with a fresh random id
func (c *Controller) Create(ctx context.Context) (*model.Session, error) {
	for attempt := 1; attempt <= CreateAttempts; attempt++ {
		now := c.clock.Now()
		session := &model.Session{
			ID:        model.SessionID(c.random.String(model.SessionIDLength, model.SessionIDAlphabet)),
			State:     model.SessionStateAddPlayers,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := c.storage.CreateSession(ctx, session)
		if errors.Is(err, model.ErrSessionExists) {
			c.logger.Debug("session id collision",
				slog.String("session_id", string(session.ID)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("session created", slog.String("session_id", string(session.ID)))
		return session, nil
	}

	c.logger.Error("session id space exhausted", slog.Int("attempts", CreateAttempts))
	return nil, model.ErrSessionIDExhausted
}

// Join adds a named player to a session that is still accepting players
func (c *Controller) Join(ctx context.Context, rawID, name string) (*JoinResult, error) {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !session.State.CanAddPlayers() {
		return nil, model.ErrAlreadyStarted
	}

	players, err := c.storage.ListPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if len(players) >= model.MaxPlayers {
		return nil, model.ErrSessionFull
	}

	displayName, err := model.ValidateName(name)
	if err != nil {
		return nil, err
	}

	return c.insertPlayer(ctx, session.ID, displayName)
}

// insertPlayer issues a token and atomically adds the player. State, capacity
// and name uniqueness are enforced again by storage.
func (c *Controller) insertPlayer(ctx context.Context, id model.SessionID, displayName string) (*JoinResult, error) {
	token, digest := c.auth.IssueToken()
	player := &model.Player{
		ID:          model.PlayerID(c.random.ID()),
		SessionID:   id,
		Name:        displayName,
		NameKey:     model.NameKey(displayName),
		TokenDigest: digest,
		Role:        model.RoleUnassigned,
		JoinedAt:    c.clock.Now(),
	}
	if err := c.storage.InsertPlayer(ctx, player, model.MaxPlayers); err != nil {
		return nil, err
	}

	c.logger.Info("player joined",
		slog.String("session_id", string(id)),
		slog.String("player_id", string(player.ID)),
	)
	return &JoinResult{Name: displayName, Token: token}, nil
}

// Start locks the roster. Roles and round are untouched.
func (c *Controller) Start(ctx context.Context, rawID string) (model.SessionState, error) {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return "", err
	}
	if !session.State.CanAddPlayers() {
		return "", model.ErrAlreadyStarted
	}

	players, err := c.storage.ListPlayers(ctx, session.ID)
	if err != nil {
		return "", err
	}
	if len(players) < model.MinPlayers || len(players) > model.MaxPlayers {
		return "", model.ErrPlayerCountOutOfRange
	}

	if err := c.storage.SetSessionState(ctx, session.ID, model.SessionStateActive, c.clock.Now()); err != nil {
		return "", err
	}

	c.logger.Info("session started",
		slog.String("session_id", string(session.ID)),
		slog.Int("player_count", len(players)),
	)
	return model.SessionStateActive, nil
}

// AssignRoles deals a fresh deck to the roster and returns the new round.
// Every call reshuffles, so it is not safe to retry blindly.
func (c *Controller) AssignRoles(ctx context.Context, rawID string) (int, error) {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return 0, err
	}
	if session.State.Normalize() != model.SessionStateActive {
		return 0, model.ErrNotStarted
	}

	players, err := c.storage.ListPlayers(ctx, session.ID)
	if err != nil {
		return 0, err
	}
	deck := roles.Generate(c.random, len(players))
	if len(deck) != len(players) {
		return 0, model.ErrUnsupportedPlayerCount
	}

	assignment := make(map[model.PlayerID]model.Role, len(players))
	for i, p := range players {
		assignment[p.ID] = deck[i]
	}

	// Roles first, then the round, then the log line. A failure part way
	// leaves roles dealt under the old round number; assigning again repairs it.
	if err := c.storage.SetPlayerRoles(ctx, session.ID, assignment); err != nil {
		return 0, err
	}
	round, err := c.storage.IncrementRound(ctx, session.ID, c.clock.Now())
	if err != nil {
		c.logger.Error("roles written without round increment",
			slog.String("session_id", string(session.ID)),
			slog.String("error", err.Error()),
		)
		return 0, err
	}
	if err := c.appendEvent(ctx, session.ID, model.EventRolesAssigned, model.RolesAssignedMessage(round)); err != nil {
		return 0, err
	}

	c.logger.Info("roles assigned",
		slog.String("session_id", string(session.ID)),
		slog.Int("round", round),
		slog.Int("player_count", len(players)),
	)
	return round, nil
}

// End destroys the session with all of its players and events
func (c *Controller) End(ctx context.Context, rawID string) error {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return err
	}
	if err := c.storage.DeleteSession(ctx, session.ID); err != nil {
		return err
	}
	c.logger.Info("session ended", slog.String("session_id", string(session.ID)))
	return nil
}

// RevealRole returns the private role message for the player holding token
func (c *Controller) RevealRole(ctx context.Context, rawID, token string) (string, error) {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return "", err
	}
	viewer, err := c.auth.Authenticate(ctx, session.ID, token)
	if err != nil {
		return "", err
	}

	roster, err := c.roster(ctx, session.ID)
	if err != nil {
		return "", err
	}
	return disclosure.RevealRole(viewer.Name, roster), nil
}

// ViewParty reveals the party of targetName to the player holding token and
// records that the investigation happened
func (c *Controller) ViewParty(ctx context.Context, rawID, token, targetName string) (*disclosure.PartyView, error) {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, model.ErrMissingToken
	}
	targetKey := model.NameKey(targetName)
	if targetKey == "" {
		return nil, model.ErrMissingTarget
	}

	viewer, err := c.auth.Authenticate(ctx, session.ID, token)
	if err != nil {
		return nil, err
	}
	target, err := c.storage.GetPlayerByNameKey(ctx, session.ID, targetKey)
	if err != nil {
		return nil, err
	}

	view, err := disclosure.Investigate(disclosure.RosterEntry{Name: target.Name, Role: target.Role})
	if err != nil {
		return nil, err
	}
	if err := c.appendEvent(ctx, session.ID, model.EventPartyViewed, model.PartyViewedMessage(target.Name)); err != nil {
		return nil, err
	}

	c.logger.Info("party viewed",
		slog.String("session_id", string(session.ID)),
		slog.String("viewer_id", string(viewer.ID)),
		slog.String("target_id", string(target.ID)),
	)
	return view, nil
}

// View returns the public state of a session
func (c *Controller) View(ctx context.Context, rawID string) (*SessionView, error) {
	session, err := c.load(ctx, rawID)
	if err != nil {
		return nil, err
	}

	players, err := c.storage.ListPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	events, err := c.storage.RecentEvents(ctx, session.ID, model.RecentEventLimit)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		ID:          session.ID,
		State:       session.State.Normalize(),
		Round:       session.Round,
		Players:     make([]string, 0, len(players)),
		PlayerCount: len(players),
		Events:      make([]EventView, 0, len(events)),
	}
	for _, p := range players {
		view.Players = append(view.Players, p.Name)
	}
	for _, e := range events {
		view.Events = append(view.Events, EventView{ID: e.ID, Message: e.Message, CreatedAt: e.CreatedAt})
	}
	return view, nil
}

func (c *Controller) roster(ctx context.Context, id model.SessionID) ([]disclosure.RosterEntry, error) {
	players, err := c.storage.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	roster := make([]disclosure.RosterEntry, 0, len(players))
	for _, p := range players {
		roster = append(roster, disclosure.RosterEntry{Name: p.Name, Role: p.Role})
	}
	return roster, nil
}

func (c *Controller) appendEvent(ctx context.Context, id model.SessionID, eventType model.EventType, message string) error {
	event := &model.Event{
		ID:        model.EventID(c.random.ID()),
		SessionID: id,
		Type:      eventType,
		Message:   message,
		CreatedAt: c.clock.Now(),
	}
	if err := c.storage.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}
