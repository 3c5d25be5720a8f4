package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                TEXT PRIMARY KEY,
		username          TEXT NOT NULL,
		email             TEXT NOT NULL,
		display_name      TEXT NOT NULL DEFAULT '',
		is_active         BOOLEAN NOT NULL DEFAULT TRUE,
		total_predictions INTEGER NOT NULL DEFAULT 0 CHECK (total_predictions >= 0),
		total_points      INTEGER NOT NULL DEFAULT 0,
		last_login_at     TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_key ON users (lower(username))`,
	`CREATE TABLE IF NOT EXISTS matches (
		id                 TEXT PRIMARY KEY,
		home_team          TEXT NOT NULL,
		away_team          TEXT NOT NULL,
		sport              TEXT NOT NULL,
		league             TEXT NOT NULL DEFAULT '',
		season             TEXT NOT NULL DEFAULT '',
		scheduled_at       TIMESTAMPTZ NOT NULL,
		status             TEXT NOT NULL,
		home_score         INTEGER,
		away_score         INTEGER,
		predictions_locked BOOLEAN NOT NULL DEFAULT FALSE,
		total_predictions  INTEGER NOT NULL DEFAULT 0 CHECK (total_predictions >= 0),
		started_at         TIMESTAMPTZ,
		finished_at        TIMESTAMPTZ,
		cancelled_at       TIMESTAMPTZ,
		cancel_reason      TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		CHECK ((status = 'finished') = (home_score IS NOT NULL AND away_score IS NOT NULL)),
		CHECK ((status = 'finished') = (finished_at IS NOT NULL)),
		CHECK (status <> 'live' OR predictions_locked)
	)`,
	`CREATE INDEX IF NOT EXISTS matches_scheduled_idx ON matches (scheduled_at, id)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES users (id),
		match_id       TEXT NOT NULL REFERENCES matches (id),
		predicted_home INTEGER NOT NULL CHECK (predicted_home BETWEEN 0 AND 99),
		predicted_away INTEGER NOT NULL CHECK (predicted_away BETWEEN 0 AND 99),
		is_scored      BOOLEAN NOT NULL DEFAULT FALSE,
		points         INTEGER,
		rationale      TEXT NOT NULL DEFAULT '',
		actual_home    INTEGER,
		actual_away    INTEGER,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ,
		scored_at      TIMESTAMPTZ,
		CONSTRAINT predictions_user_match_key UNIQUE (user_id, match_id),
		CHECK (is_scored = (points IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS predictions_match_idx ON predictions (match_id) WHERE NOT is_scored`,
	`CREATE INDEX IF NOT EXISTS predictions_scored_idx ON predictions (scored_at) WHERE is_scored`,
}

// EnsureSchema creates the tables and indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres.schema: statement %d: %w", i, err)
		}
	}
	return nil
}
