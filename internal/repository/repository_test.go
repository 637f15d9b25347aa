// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a migrated pool.
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newSession returns a fresh session at version 1, ready to be inserted.
func newSession(t *testing.T, id string) *model.GameSession {
	t.Helper()
	rules := telefunken.DefaultRules()
	rules.Intn = func(int) int { return 0 }
	s, err := rules.NewSession(id, "ABC123", []string{"P1", "P2", "P3"}, testNow)
	require.NoError(t, err)
	s.Version = 1
	return s
}

// ============================================================================
// SessionRepository Tests
// ============================================================================

func TestSessionRepository_StoreAndLoad(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s := newSession(t, "s-1")
	require.NoError(t, repo.Store(ctx, s))

	loaded, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, s.Usernames(), loaded.Usernames())
	assert.Equal(t, "P1", loaded.Dealer)
	assert.Equal(t, "P2", loaded.CurrentTurn)
	assert.Len(t, loaded.Rounds, telefunken.RoundCount)
	assert.Equal(t, model.RoundPending, loaded.Rounds[0].Status)
}

func TestSessionRepository_LoadMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	_, err := repo.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepository_DuplicateInsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, newSession(t, "s-1")))
	err := repo.Store(ctx, newSession(t, "s-1"))
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestSessionRepository_VersionedUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()
	rules := telefunken.DefaultRules()

	s := newSession(t, "s-1")
	require.NoError(t, repo.Store(ctx, s))

	next := s.Clone()
	require.NoError(t, rules.Claim(next, "P1", 3, testNow))
	next.Version = 2
	require.NoError(t, repo.Store(ctx, next))

	loaded, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Equal(t, model.RoundClaimed, loaded.Rounds[0].Status)
	assert.Equal(t, 3, loaded.TokensUsed["P1"])

	// A writer that still holds version 1 loses.
	stale := s.Clone()
	stale.Version = 2
	assert.ErrorIs(t, repo.Store(ctx, stale), ErrVersionConflict)
}

func TestSessionRepository_Patch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s := newSession(t, "s-1")
	require.NoError(t, repo.Store(ctx, s))

	next := "P3"
	patch := model.SessionPatch{
		CurrentTurn: &next,
		AppendActions: []model.ActionRecord{{
			ID:        "a-1",
			Actor:     "P2",
			Action:    model.Action{Kind: model.ActionCardDiscard, Discard: &model.CardDiscard{Card: "7"}},
			Timestamp: testNow,
		}},
		PlayerStatus: map[string]model.PlayerStatus{"P1": model.PlayerDisconnected},
		UpdatedAt:    testNow.Add(time.Minute),
	}
	require.NoError(t, repo.Patch(ctx, "s-1", 1, patch))

	loaded, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Equal(t, "P3", loaded.CurrentTurn)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "7", loaded.Actions[0].Action.Discard.Card)
	p1, _ := loaded.Player("P1")
	assert.Equal(t, model.PlayerDisconnected, p1.Status)

	assert.ErrorIs(t, repo.Patch(ctx, "s-1", 1, patch), ErrVersionConflict)
	assert.ErrorIs(t, repo.Patch(ctx, "missing", 1, patch), ErrSessionNotFound)
}

func TestSessionRepository_FindByCode(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, newSession(t, "s-1")))

	found, err := repo.FindByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "s-1", found.SessionID)

	_, err = repo.FindByCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// ============================================================================
// HistoryRepository Tests
// ============================================================================

func TestHistoryRepository_RecordAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	sessions := NewSessionRepository(pool)
	repo := NewHistoryRepository(pool)
	ctx := context.Background()

	require.NoError(t, sessions.Store(ctx, newSession(t, "s-1")))
	require.NoError(t, sessions.Store(ctx, newSession(t, "s-2")))

	require.NoError(t, repo.Record(ctx, []model.PlayerHistory{
		{Username: "P1", SessionID: "s-1", SessionCode: "ABC123", TotalPoints: 40, Won: true, CompletedAt: testNow},
		{Username: "P2", SessionID: "s-1", SessionCode: "ABC123", TotalPoints: 90, Penalties: 50, CompletedAt: testNow},
	}))
	require.NoError(t, repo.Record(ctx, []model.PlayerHistory{
		{Username: "P1", SessionID: "s-2", SessionCode: "ABC123", TotalPoints: 70, CompletedAt: testNow.Add(time.Hour)},
	}))
	// Recording the same session again is a no-op.
	require.NoError(t, repo.Record(ctx, []model.PlayerHistory{
		{Username: "P1", SessionID: "s-1", SessionCode: "ABC123", TotalPoints: 999, CompletedAt: testNow},
	}))

	entries, err := repo.ListByPlayer(ctx, "P1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s-2", entries[0].SessionID)
	assert.Equal(t, "s-1", entries[1].SessionID)
	assert.Equal(t, 40, entries[1].TotalPoints)
	assert.True(t, entries[1].Won)

	entries, err = repo.ListByPlayer(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
