// Package postgres provides a PostgreSQL-backed session store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

const uniqueViolation = "23505"

// Storage persists sessions in PostgreSQL
type Storage struct {
	pool *pgxpool.Pool
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open connects to databaseURL, verifies the connection and runs migrations
func Open(ctx context.Context, databaseURL string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigration(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close releases the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, state, round, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		string(session.ID), string(session.State), session.Round, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return model.ErrSessionExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var (
		session model.Session
		state   string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, state, round, created_at, updated_at FROM sessions WHERE id = $1`, string(id),
	).Scan(&session.ID, &state, &session.Round, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.State = model.SessionState(state)
	return &session, nil
}

func (s *Storage) SetSessionState(ctx context.Context, id model.SessionID, state model.SessionState, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET state = $2, updated_at = $3 WHERE id = $1`,
		string(id), string(state), updatedAt)
	if err != nil {
		return fmt.Errorf("set session state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (s *Storage) IncrementRound(ctx context.Context, id model.SessionID, updatedAt time.Time) (int, error) {
	var round int
	err := s.pool.QueryRow(ctx,
		`UPDATE sessions SET round = round + 1, updated_at = $2 WHERE id = $1 RETURNING round`,
		string(id), updatedAt,
	).Scan(&round)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment round: %w", err)
	}
	return round, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM players WHERE session_id = $1`,
			`DELETE FROM events WHERE session_id = $1`,
			`DELETE FROM sessions WHERE id = $1`,
		} {
			if _, err := tx.Exec(ctx, stmt, string(id)); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		return nil
	})
}

// Player operations

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player, maxPlayers int) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Lock the session row so concurrent joins and Start are serialised
		var state string
		err := tx.QueryRow(ctx,
			`SELECT state FROM sessions WHERE id = $1 FOR UPDATE`, string(player.SessionID),
		).Scan(&state)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if !model.SessionState(state).CanAddPlayers() {
			return model.ErrAlreadyStarted
		}

		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM players WHERE session_id = $1`, string(player.SessionID),
		).Scan(&count); err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		if count >= maxPlayers {
			return model.ErrSessionFull
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO players (id, session_id, name, name_key, token_digest, role, joined_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(player.ID), string(player.SessionID), player.Name, player.NameKey,
			player.TokenDigest, string(player.Role), player.JoinedAt)
		if err != nil {
			if isUniqueViolation(err, nameKeyConstraint) {
				return model.ErrNameTaken
			}
			return fmt.Errorf("insert player: %w", err)
		}
		return nil
	})
}

const playerColumns = `id, session_id, name, name_key, token_digest, role, joined_at`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var (
		p    model.Player
		role string
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.NameKey, &p.TokenDigest, &role, &p.JoinedAt); err != nil {
		return nil, err
	}
	p.Role = model.Role(role)
	return &p, nil
}

func (s *Storage) ListPlayers(ctx context.Context, id model.SessionID) ([]*model.Player, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 ORDER BY joined_at, seq`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []*model.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *Storage) GetPlayerByToken(ctx context.Context, id model.SessionID, tokenDigest string) (*model.Player, error) {
	return s.getPlayer(ctx, `token_digest`, id, tokenDigest)
}

func (s *Storage) GetPlayerByNameKey(ctx context.Context, id model.SessionID, nameKey string) (*model.Player, error) {
	return s.getPlayer(ctx, `name_key`, id, nameKey)
}

func (s *Storage) getPlayer(ctx context.Context, column string, id model.SessionID, value string) (*model.Player, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 AND `+column+` = $2`, string(id), value)
	p, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *Storage) SetPlayerRoles(ctx context.Context, id model.SessionID, roles map[model.PlayerID]model.Role) error {
	if len(roles) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for playerID, role := range roles {
			batch.Queue(`UPDATE players SET role = $3 WHERE session_id = $1 AND id = $2`,
				string(id), string(playerID), string(role))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("set player roles: %w", err)
		}
		return nil
	})
}

// Event operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, session_id, type, message, created_at)
		 SELECT $1::text, $2::text, $3::text, $4::text, $5::timestamptz
		 WHERE EXISTS (SELECT 1 FROM sessions WHERE id = $2)`,
		string(event.ID), string(event.SessionID), string(event.Type), event.Message, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (s *Storage) RecentEvents(ctx context.Context, id model.SessionID, limit int) ([]*model.Event, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, type, message, created_at FROM (
		   SELECT id, session_id, type, message, created_at, seq FROM events
		   WHERE session_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2
		 ) recent ORDER BY created_at, seq`,
		string(id), limitArg)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	events := []*model.Event{}
	for rows.Next() {
		var (
			e         model.Event
			eventType string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &eventType, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = model.EventType(eventType)
		events = append(events, &e)
	}
	return events, rows.Err()
}
