package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const nameKeyConstraint = "players_session_name_key"

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		round INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		token_digest TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT ` + nameKeyConstraint + ` UNIQUE (session_id, name_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_players_session_token ON players (session_id, token_digest)`,
	`CREATE INDEX IF NOT EXISTS idx_players_session_order ON players (session_id, joined_at, seq)`,
	`CREATE TABLE IF NOT EXISTS events (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session_created ON events (session_id, created_at, seq)`,
}

// RunMigration creates the schema if it does not exist. Every statement is idempotent.
func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
