// Package sqlite provides a SQLite-backed session store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/sqlite/migrations"
)

// Storage persists sessions in a SQLite database file
type Storage struct {
	db *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite database at path and applies embedded migrations
func Open(ctx context.Context, path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serialises writers, which makes the conditional
	// inserts below atomic.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the SQLite handle
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, round, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(session.ID), string(session.State), session.Round,
		toMillis(session.CreatedAt), toMillis(session.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrSessionExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var (
		session          model.Session
		state            string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, state, round, created_at, updated_at FROM sessions WHERE id = ?`, string(id),
	).Scan(&session.ID, &state, &session.Round, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.State = model.SessionState(state)
	session.CreatedAt = fromMillis(created)
	session.UpdatedAt = fromMillis(updated)
	return &session, nil
}

func (s *Storage) SetSessionState(ctx context.Context, id model.SessionID, state model.SessionState, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), toMillis(updatedAt), string(id),
	)
	if err != nil {
		return fmt.Errorf("set session state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set session state: %w", err)
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (s *Storage) IncrementRound(ctx context.Context, id model.SessionID, updatedAt time.Time) (int, error) {
	var round int
	err := s.db.QueryRowContext(ctx,
		`UPDATE sessions SET round = round + 1, updated_at = ? WHERE id = ? RETURNING round`,
		toMillis(updatedAt), string(id),
	).Scan(&round)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment round: %w", err)
	}
	return round, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM players WHERE session_id = ?`,
		`DELETE FROM events WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, string(id)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return tx.Commit()
}

// Player operations

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player, maxPlayers int) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, session_id, name, name_key, token_digest, role, joined_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ? AND state IN (?, ?))
		   AND (SELECT COUNT(*) FROM players WHERE session_id = ?) < ?`,
		string(player.ID), string(player.SessionID), player.Name, player.NameKey,
		player.TokenDigest, string(player.Role), toMillis(player.JoinedAt),
		string(player.SessionID), string(model.SessionStateAddPlayers), string(model.SessionStateInactive),
		string(player.SessionID), maxPlayers,
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "name_key") {
			return model.ErrNameTaken
		}
		return fmt.Errorf("insert player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing was inserted; work out which condition failed
	session, err := s.GetSession(ctx, player.SessionID)
	if err != nil {
		return err
	}
	if !session.State.CanAddPlayers() {
		return model.ErrAlreadyStarted
	}
	return model.ErrSessionFull
}

const playerColumns = `id, session_id, name, name_key, token_digest, role, joined_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*model.Player, error) {
	var (
		p        model.Player
		role     string
		joinedAt int64
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.NameKey, &p.TokenDigest, &role, &joinedAt); err != nil {
		return nil, err
	}
	p.Role = model.Role(role)
	p.JoinedAt = fromMillis(joinedAt)
	return &p, nil
}

func (s *Storage) ListPlayers(ctx context.Context, id model.SessionID) ([]*model.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = ? ORDER BY joined_at, rowid`, string(id),
	)
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
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = ? AND `+column+` = ?`, string(id), value,
	)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *Storage) SetPlayerRoles(ctx context.Context, id model.SessionID, roles map[model.PlayerID]model.Role) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set player roles: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE players SET role = ? WHERE session_id = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("set player roles: %w", err)
	}
	defer stmt.Close()

	for playerID, role := range roles {
		if _, err := stmt.ExecContext(ctx, string(role), string(id), string(playerID)); err != nil {
			return fmt.Errorf("set player role: %w", err)
		}
	}
	return tx.Commit()
}

// Event operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, session_id, type, message, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ?)`,
		string(event.ID), string(event.SessionID), string(event.Type), event.Message, toMillis(event.CreatedAt),
		string(event.SessionID),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (s *Storage) RecentEvents(ctx context.Context, id model.SessionID, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, type, message, created_at FROM events
		 WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(id), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var (
			e         model.Event
			eventType string
			created   int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &eventType, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = model.EventType(eventType)
		e.CreatedAt = fromMillis(created)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest first from the query; callers want oldest first
	result := make([]*model.Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		result = append(result, events[i])
	}
	return result, nil
}
