// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
	"telefunken-server/internal/pkg/lock"
	"telefunken-server/internal/repository"
)

// Session service errors
var (
	ErrPersistence     = errors.New("persistence failure")
	ErrSessionNotFound = fmt.Errorf("%w: session not found", telefunken.ErrNotFound)
	ErrSessionExists   = fmt.Errorf("%w: session already exists", telefunken.ErrStateConflict)
	ErrSessionBusy     = fmt.Errorf("%w: session is busy, try again", telefunken.ErrStateConflict)
)

// SessionStore persists whole sessions and partial updates. Store and
// Patch must reject writes made against a stale version.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*model.GameSession, error)
	Store(ctx context.Context, s *model.GameSession) error
	Patch(ctx context.Context, sessionID string, version int64, patch model.SessionPatch) error
	FindByCode(ctx context.Context, code string) (*model.GameSession, error)
}

// Notifier delivers an event to everyone watching a room. Implementations
// must not block the caller.
type Notifier interface {
	Broadcast(room, event string, payload any)
}

// StartRequest carries the arguments of Start.
type StartRequest struct {
	SessionID   string
	SessionCode string
	Players     []string
}

// SessionService owns every game session. Each mutation runs under the
// session's lock against a copy of the cached state, and the copy replaces
// the cache only once the store has accepted it.
type SessionService struct {
	rules       telefunken.Rules
	store       SessionStore
	history     HistoryStore
	notifier    Notifier
	locks       *lock.KeyedLock
	lockTimeout time.Duration
	now         func() time.Time
	newID       func() string

	mu    sync.RWMutex
	cache map[string]*model.GameSession
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithHistory records player history whenever a session completes.
func WithHistory(h HistoryStore) Option {
	return func(s *SessionService) { s.history = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// WithIDGenerator overrides how session and action ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *SessionService) { s.newID = newID }
}

// WithLockTimeout bounds how long an operation waits for its session.
func WithLockTimeout(d time.Duration) Option {
	return func(s *SessionService) { s.lockTimeout = d }
}

// NewSessionService creates a new SessionService instance
func NewSessionService(rules telefunken.Rules, store SessionStore, notifier Notifier, opts ...Option) *SessionService {
	s := &SessionService{
		rules:       rules,
		store:       store,
		notifier:    notifier,
		locks:       lock.NewKeyedLock(),
		lockTimeout: 5 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
		cache:       make(map[string]*model.GameSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a session and broadcasts gameStarted.
func (s *SessionService) Start(ctx context.Context, req StartRequest) (*model.GameSession, error) {
	id := req.SessionID
	if id == "" {
		id = s.newID()
	}

	var created *model.GameSession
	err := s.withSession(ctx, id, func() error {
		if _, ok := s.cached(id); ok {
			return ErrSessionExists
		}
		session, err := s.rules.NewSession(id, req.SessionCode, req.Players, s.now())
		if err != nil {
			return err
		}
		session.Version = 1
		if err := s.save(ctx, session); err != nil {
			return err
		}
		created = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", created.SessionID).
		Str("session_code", created.SessionCode).
		Strs("players", created.Usernames()).
		Str("dealer", created.Dealer).
		Msg("Game session started")

	s.notifier.Broadcast(created.SessionID, model.EventGameStarted, created.Clone())
	return created.Clone(), nil
}

// Get returns a snapshot of the session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.GameSession, error) {
	session, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// FindByCode returns the session players join with code.
func (s *SessionService) FindByCode(ctx context.Context, code string) (*model.GameSession, error) {
	session, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return s.Get(ctx, session.SessionID)
}

// ClaimRound claims the current round for claimant and charges tokens.
func (s *SessionService) ClaimRound(ctx context.Context, sessionID, claimant string, tokens int) (*model.GameSession, error) {
	next, err := s.mutate(ctx, sessionID, func(session *model.GameSession, now time.Time) error {
		return s.rules.Claim(session, claimant, tokens, now)
	})
	if err != nil {
		return nil, err
	}

	round := next.Round()
	log.Info().
		Str("session_id", sessionID).
		Str("player", claimant).
		Int("round", next.CurrentRound).
		Int("tokens", tokens).
		Int("tokens_used", next.TokensUsed[claimant]).
		Msg("Round claimed")

	s.notifier.Broadcast(sessionID, model.EventRoundClaimed, model.RoundClaimedEvent{
		SessionID:  sessionID,
		RoundIndex: next.CurrentRound,
		RoundName:  round.Name,
		ClaimedBy:  claimant,
		TokenCount: tokens,
		TokensUsed: next.TokensUsed[claimant],
	})
	return next.Clone(), nil
}

// DeclareCards records the cards declarant is left holding this round.
func (s *SessionService) DeclareCards(ctx context.Context, sessionID, declarant string, declarations model.Declaration) (*model.GameSession, error) {
	next, err := s.mutate(ctx, sessionID, func(session *model.GameSession, now time.Time) error {
		return s.rules.Declare(session, declarant, declarations, now)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("player", declarant).
		Int("round", next.CurrentRound).
		Msg("Cards declared")

	s.notifier.Broadcast(sessionID, model.EventCardsDeclared, model.CardsDeclaredEvent{
		SessionID:    sessionID,
		RoundIndex:   next.CurrentRound,
		Player:       declarant,
		Declarations: declarations.Clone(),
	})
	return next.Clone(), nil
}

// ApproveRound resolves the pending claim. After the last round the
// session completes, history is recorded and gameEnded follows
// roundApproved.
func (s *SessionService) ApproveRound(ctx context.Context, sessionID, approver string, approved bool) (*model.GameSession, error) {
	var (
		roundIndex int
		completed  bool
	)
	next, err := s.mutate(ctx, sessionID, func(session *model.GameSession, now time.Time) error {
		roundIndex = session.CurrentRound
		done, err := s.rules.Approve(session, approver, approved, now)
		completed = done
		return err
	})
	if err != nil {
		return nil, err
	}

	round := next.Rounds[roundIndex]
	log.Info().
		Str("session_id", sessionID).
		Str("player", approver).
		Str("claimant", round.ClaimedBy).
		Int("round", roundIndex).
		Bool("approved", approved).
		Msg("Round resolved")

	s.notifier.Broadcast(sessionID, model.EventRoundApproved, model.RoundApprovedEvent{
		SessionID:  sessionID,
		RoundIndex: roundIndex,
		Approver:   approver,
		Approved:   approved,
		Round:      round,
		Session:    next.Clone(),
	})
	if completed {
		s.completed(ctx, next)
	}
	return next.Clone(), nil
}

// End completes the session, forcing it if rounds remain.
func (s *SessionService) End(ctx context.Context, sessionID string) (*model.GameSession, error) {
	next, err := s.mutate(ctx, sessionID, func(session *model.GameSession, now time.Time) error {
		return s.rules.End(session, now)
	})
	if err != nil {
		return nil, err
	}
	s.completed(ctx, next)
	return next.Clone(), nil
}

// RecordAction appends an ancillary move to the action log.
func (s *SessionService) RecordAction(ctx context.Context, sessionID, actor string, action model.Action) (*model.ActionRecord, error) {
	id := s.newID()
	next, patch, err := s.patch(ctx, sessionID, func(session *model.GameSession, now time.Time) (model.SessionPatch, error) {
		return s.rules.RecordAction(session, id, actor, action, now)
	})
	if err != nil {
		return nil, err
	}

	rec := patch.AppendActions[0]
	log.Debug().
		Str("session_id", sessionID).
		Str("player", actor).
		Str("kind", string(action.Kind)).
		Int("round", next.CurrentRound).
		Msg("Action recorded")

	s.notifier.Broadcast(sessionID, model.EventActionRecorded, model.ActionRecordedEvent{
		SessionID: sessionID,
		Record:    rec,
	})
	return &rec, nil
}

// EndTurn hands the turn to nextPlayer, or to the following seat when
// nextPlayer is empty.
func (s *SessionService) EndTurn(ctx context.Context, sessionID, nextPlayer string) (*model.GameSession, error) {
	next, _, err := s.patch(ctx, sessionID, func(session *model.GameSession, now time.Time) (model.SessionPatch, error) {
		return s.rules.EndTurn(session, nextPlayer, now)
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("player", next.CurrentTurn).
		Int("round", next.CurrentRound).
		Msg("Turn ended")

	s.notifier.Broadcast(sessionID, model.EventTurnEnded, model.TurnEndedEvent{
		SessionID:   sessionID,
		CurrentTurn: next.CurrentTurn,
	})
	return next.Clone(), nil
}

// SetPlayerStatus marks a player active, left or disconnected.
func (s *SessionService) SetPlayerStatus(ctx context.Context, sessionID, player string, status model.PlayerStatus) (*model.GameSession, error) {
	next, _, err := s.patch(ctx, sessionID, func(session *model.GameSession, now time.Time) (model.SessionPatch, error) {
		return s.rules.SetPlayerStatus(session, player, status, now)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("player", player).
		Str("status", string(status)).
		Msg("Player status changed")

	s.notifier.Broadcast(sessionID, model.EventPlayerStatusChanged, model.PlayerStatusChangedEvent{
		SessionID: sessionID,
		Player:    player,
		Status:    status,
	})
	return next.Clone(), nil
}

// completed records history and announces the results. Both happen after
// the session lock is released; a history failure is logged only.
func (s *SessionService) completed(ctx context.Context, session *model.GameSession) {
	log.Info().
		Str("session_id", session.SessionID).
		Str("winner", session.Results.Winner).
		Bool("forced", session.Results.Forced).
		Interface("points", session.Results.Points).
		Msg("Game session completed")

	if s.history != nil {
		if err := s.history.Record(ctx, historyEntries(session)); err != nil {
			log.Error().Err(err).Str("session_id", session.SessionID).Msg("Failed to record player history")
		}
	}

	s.notifier.Broadcast(session.SessionID, model.EventGameEnded, model.GameEndedEvent{
		SessionID: session.SessionID,
		Results:   session.Clone().Results,
	})
}

// mutate applies fn to a copy of the session under its lock and commits
// the copy with a full store write.
func (s *SessionService) mutate(ctx context.Context, sessionID string, fn func(*model.GameSession, time.Time) error) (*model.GameSession, error) {
	var committed *model.GameSession
	err := s.withSession(ctx, sessionID, func() error {
		current, err := s.current(ctx, sessionID)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next, s.now()); err != nil {
			return err
		}
		next.Version = current.Version + 1
		if err := s.save(ctx, next); err != nil {
			return err
		}
		committed = next
		return nil
	})
	return committed, err
}

// patch computes a partial update under the session lock and commits it
// with a store patch.
func (s *SessionService) patch(ctx context.Context, sessionID string, fn func(*model.GameSession, time.Time) (model.SessionPatch, error)) (*model.GameSession, model.SessionPatch, error) {
	var (
		committed *model.GameSession
		applied   model.SessionPatch
	)
	err := s.withSession(ctx, sessionID, func() error {
		current, err := s.current(ctx, sessionID)
		if err != nil {
			return err
		}
		p, err := fn(current, s.now())
		if err != nil {
			return err
		}
		if err := s.store.Patch(ctx, sessionID, current.Version, p); err != nil {
			return s.storeError(sessionID, err)
		}
		next := current.Clone()
		p.Apply(next)
		s.put(next)
		committed, applied = next, p
		return nil
	})
	return committed, applied, err
}

func (s *SessionService) withSession(ctx context.Context, sessionID string, fn func() error) error {
	err := s.locks.WithLockContext(ctx, sessionID, s.lockTimeout, fn)
	if errors.Is(err, lock.ErrLockTimeout) {
		log.Warn().Str("session_id", sessionID).Dur("timeout", s.lockTimeout).Msg("Session lock timed out")
		return ErrSessionBusy
	}
	return err
}

// save stores session and, on success, publishes it to the cache.
func (s *SessionService) save(ctx context.Context, session *model.GameSession) error {
	if err := s.store.Store(ctx, session); err != nil {
		return s.storeError(session.SessionID, err)
	}
	s.put(session)
	return nil
}

func (s *SessionService) storeError(sessionID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionExists):
		return ErrSessionExists
	case errors.Is(err, repository.ErrSessionNotFound):
		s.evict(sessionID)
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		// Another process moved the session on; reload on next access.
		s.evict(sessionID)
	}
	log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to persist session")
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// current returns the cached session, loading it from the store on a miss.
// Callers must not modify the result.
func (s *SessionService) current(ctx context.Context, sessionID string) (*model.GameSession, error) {
	if session, ok := s.cached(sessionID); ok {
		return session, nil
	}

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.put(session)
	return session, nil
}

func (s *SessionService) cached(sessionID string) (*model.GameSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.cache[sessionID]
	return session, ok
}

// put caches session unless a newer version is already cached. Completed
// sessions accept no further writes, so they drop out of the cache and
// later reads go to the store.
func (s *SessionService) put(session *model.GameSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Status == model.SessionCompleted {
		delete(s.cache, session.SessionID)
		return
	}
	if cur, ok := s.cache[session.SessionID]; ok && cur.Version >= session.Version {
		return
	}
	s.cache[session.SessionID] = session
}

func (s *SessionService) evict(sessionID string) {
	s.mu.Lock()
	delete(s.cache, sessionID)
	s.mu.Unlock()
}
