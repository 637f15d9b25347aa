package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "game_sessions table",
		sql: `
			CREATE TABLE IF NOT EXISTS game_sessions (
				session_id VARCHAR(64) PRIMARY KEY,
				session_code VARCHAR(16) NOT NULL,
				status VARCHAR(16) NOT NULL,
				document JSONB NOT NULL,
				version BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_game_sessions_code ON game_sessions(session_code, created_at DESC);
		`,
	},
	{
		name: "player_history table",
		sql: `
			CREATE TABLE IF NOT EXISTS player_history (
				id BIGSERIAL PRIMARY KEY,
				username VARCHAR(255) NOT NULL,
				session_id VARCHAR(64) NOT NULL REFERENCES game_sessions(session_id) ON DELETE CASCADE,
				session_code VARCHAR(16) NOT NULL,
				total_points INT NOT NULL,
				penalties INT NOT NULL DEFAULT 0,
				tokens_used INT NOT NULL DEFAULT 0,
				rounds_won INT NOT NULL DEFAULT 0,
				won BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TIMESTAMPTZ NOT NULL,
				UNIQUE (username, session_id)
			);
			CREATE INDEX IF NOT EXISTS idx_player_history_user_time ON player_history(username, completed_at DESC);
		`,
	},
}

// Migrate applies the database schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
