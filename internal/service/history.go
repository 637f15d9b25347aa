package service

import (
	"context"
	"fmt"
	"strings"

	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
)

// History listing limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryStore persists per-player records of completed sessions.
type HistoryStore interface {
	Record(ctx context.Context, entries []model.PlayerHistory) error
	ListByPlayer(ctx context.Context, username string, limit int) ([]model.PlayerHistory, error)
}

// HistoryService handles player history queries.
type HistoryService struct {
	store HistoryStore
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(store HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// PlayerHistory returns the player's completed games, newest first.
// A non-positive limit selects the default; larger limits are capped.
func (h *HistoryService) PlayerHistory(ctx context.Context, username string, limit int) ([]model.PlayerHistory, error) {
	if strings.TrimSpace(username) == "" {
		return nil, telefunken.ErrBlankPlayer
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	entries, err := h.store.ListByPlayer(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return entries, nil
}

// historyEntries builds one record per seated player of a completed session.
func historyEntries(s *model.GameSession) []model.PlayerHistory {
	if s.Results == nil {
		return nil
	}

	roundsWon := make(map[string]int, len(s.Players))
	for _, r := range s.Rounds {
		if r.Winner != "" {
			roundsWon[r.Winner]++
		}
	}

	entries := make([]model.PlayerHistory, 0, len(s.Players))
	for _, name := range s.Usernames() {
		entries = append(entries, model.PlayerHistory{
			Username:    name,
			SessionID:   s.SessionID,
			SessionCode: s.SessionCode,
			TotalPoints: s.Results.Points[name],
			Penalties:   s.Results.Penalties[name],
			TokensUsed:  s.TokensUsed[name],
			RoundsWon:   roundsWon[name],
			Won:         s.Results.Winner == name,
			CompletedAt: s.Results.EndedAt,
		})
	}
	return entries
}
