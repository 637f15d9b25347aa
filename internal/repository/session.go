// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telefunken-server/internal/model"
)

// Common errors for repository operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrVersionConflict = errors.New("session was modified concurrently")
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// SessionRepository persists game sessions as JSONB documents alongside the
// columns needed for lookups. Writes are guarded by the version column.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Load retrieves a session by id.
// Returns ErrSessionNotFound if the session does not exist.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*model.GameSession, error) {
	const query = `
		SELECT document, version
		FROM game_sessions
		WHERE session_id = $1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

// Store writes the whole session. A session at version 1 is inserted; any
// later version replaces the row only if it still holds the previous version.
func (r *SessionRepository) Store(ctx context.Context, s *model.GameSession) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if s.Version <= 1 {
		const insert = `
			INSERT INTO game_sessions (session_id, session_code, status, document, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := r.pool.Exec(ctx, insert,
			s.SessionID, s.SessionCode, string(s.Status), doc, s.Version, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrSessionExists
			}
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	}

	const update = `
		UPDATE game_sessions
		SET status = $2, document = $3, version = $4, updated_at = $5
		WHERE session_id = $1 AND version = $6
	`
	tag, err := r.pool.Exec(ctx, update,
		s.SessionID, string(s.Status), doc, s.Version, s.UpdatedAt, s.Version-1)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Patch applies a partial update inside a transaction. The row is locked,
// checked against version, patched and written back at version+1.
func (r *SessionRepository) Patch(ctx context.Context, sessionID string, version int64, patch model.SessionPatch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const lockRow = `
		SELECT document, version
		FROM game_sessions
		WHERE session_id = $1
		FOR UPDATE
	`
	s, err := scanSession(tx.QueryRow(ctx, lockRow, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to lock session: %w", err)
	}
	if s.Version != version {
		return ErrVersionConflict
	}

	patch.Apply(s)
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	const update = `
		UPDATE game_sessions
		SET document = $2, version = $3, updated_at = $4
		WHERE session_id = $1
	`
	if _, err := tx.Exec(ctx, update, sessionID, doc, s.Version, s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to patch session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit patch: %w", err)
	}
	return nil
}

// FindByCode returns the most recent session with the given join code.
func (r *SessionRepository) FindByCode(ctx context.Context, code string) (*model.GameSession, error) {
	const query = `
		SELECT document, version
		FROM game_sessions
		WHERE session_code = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session by code: %w", err)
	}
	return s, nil
}

func scanSession(row pgx.Row) (*model.GameSession, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		return nil, err
	}

	var s model.GameSession
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	s.Version = version
	return &s, nil
}
