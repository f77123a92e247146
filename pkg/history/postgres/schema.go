// Package postgres provides a PostgreSQL-backed [history.Store] for practice
// sessions. It targets Supabase but works with any PostgreSQL 13+ database.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	s, _ := store.CreateSession(ctx, session)
//	stats, _ := store.Stats(ctx, history.DemoUser.ID)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUsers = `
CREATE TABLE IF NOT EXISTS users (
    id          BIGSERIAL    PRIMARY KEY,
    name        TEXT         NOT NULL,
    email       TEXT         NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlPracticeSessions = `
CREATE TABLE IF NOT EXISTS practice_sessions (
    id                BIGSERIAL    PRIMARY KEY,
    user_id           BIGINT       NOT NULL,
    category_id       TEXT         NOT NULL,
    question_id       TEXT         NOT NULL,
    transcript        TEXT         NOT NULL DEFAULT '',
    metrics           JSONB        NOT NULL DEFAULT '{}',
    feedback          JSONB        NOT NULL DEFAULT '{}',
    duration_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
    confidence_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_practice_sessions_user_created
    ON practice_sessions (user_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_practice_sessions_user_category
    ON practice_sessions (user_id, category_id);
`

// ddlDemoUser seeds the account the server acts as.
const ddlDemoUser = `
INSERT INTO users (id, name, email)
VALUES (1, 'Demo User', 'demo@example.com')
ON CONFLICT (id) DO NOTHING;
`

// Migrate creates the tables and indexes the store needs. Every statement
// is idempotent, so Migrate runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlUsers, ddlPracticeSessions, ddlDemoUser} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
