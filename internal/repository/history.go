package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"telefunken-server/internal/model"
)

// HistoryRepository handles per-player game history persistence.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Record stores one row per player of a completed session. Rows for a
// session already recorded are left untouched.
func (r *HistoryRepository) Record(ctx context.Context, entries []model.PlayerHistory) error {
	if len(entries) == 0 {
		return nil
	}

	const query = `
		INSERT INTO player_history
			(username, session_id, session_code, total_points, penalties, tokens_used, rounds_won, won, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (username, session_id) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range entries {
		_, err := tx.Exec(ctx, query,
			e.Username,
			e.SessionID,
			e.SessionCode,
			e.TotalPoints,
			e.Penalties,
			e.TokensUsed,
			e.RoundsWon,
			e.Won,
			e.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// ListByPlayer retrieves a player's completed games, newest first.
func (r *HistoryRepository) ListByPlayer(ctx context.Context, username string, limit int) ([]model.PlayerHistory, error) {
	const query = `
		SELECT id, username, session_id, session_code, total_points, penalties, tokens_used, rounds_won, won, completed_at
		FROM player_history
		WHERE username = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []model.PlayerHistory{}
	for rows.Next() {
		var e model.PlayerHistory
		err := rows.Scan(
			&e.ID,
			&e.Username,
			&e.SessionID,
			&e.SessionCode,
			&e.TotalPoints,
			&e.Penalties,
			&e.TokensUsed,
			&e.RoundsWon,
			&e.Won,
			&e.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}
