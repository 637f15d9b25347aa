package telefunken

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"telefunken-server/internal/model"
)

// Seat limits.
const (
	DefaultMinPlayers = 2
	DefaultMaxPlayers = 6
)

// Rules holds the table settings a session is played under.
type Rules struct {
	MinPlayers int
	MaxPlayers int
	TieBreak   TieBreak
	Intn       Intn
}

// DefaultRules returns the standard two to six player rules.
func DefaultRules() Rules {
	return Rules{
		MinPlayers: DefaultMinPlayers,
		MaxPlayers: DefaultMaxPlayers,
		TieBreak:   TieBreakSeat,
		Intn:       rand.Intn,
	}
}

func (r Rules) validateRoster(players []string) error {
	minPlayers := r.MinPlayers
	if minPlayers < DefaultMinPlayers {
		minPlayers = DefaultMinPlayers
	}
	if len(players) < minPlayers {
		return ErrNotEnoughPlayers
	}
	if r.MaxPlayers > 0 && len(players) > r.MaxPlayers {
		return fmt.Errorf("%w: %d seats, limit %d", ErrTooManyPlayers, len(players), r.MaxPlayers)
	}
	seen := make(map[string]struct{}, len(players))
	for _, name := range players {
		if strings.TrimSpace(name) == "" {
			return ErrBlankPlayer
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// NewSession seats the roster, deals the first round and picks the dealer.
// The first turn goes to the seat after the dealer.
func (r Rules) NewSession(sessionID, sessionCode string, players []string, now time.Time) (*model.GameSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrValidation)
	}
	if err := r.validateRoster(players); err != nil {
		return nil, err
	}
	if sessionCode == "" {
		sessionCode = GenerateSessionCode(r.Intn)
	}

	dealer, starter := AssignDealerAndStarter(players, r.Intn)
	s := &model.GameSession{
		SessionID:   sessionID,
		SessionCode: sessionCode,
		Dealer:      dealer,
		CurrentTurn: starter,
		Players:     make([]model.Player, len(players)),
		Status:      model.SessionInProgress,
		Rounds:      NewRoundTrack(),
		TokensUsed:  make(map[string]int, len(players)),
		Actions:     []model.ActionRecord{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, name := range players {
		s.Players[i] = model.Player{Username: name, Status: model.PlayerActive, JoinedAt: now}
		s.TokensUsed[name] = 0
	}
	return s, nil
}

func checkSeated(s *model.GameSession, name string) error {
	if _, ok := s.Player(name); !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}
	return nil
}

func checkInProgress(s *model.GameSession) error {
	if s.Status == model.SessionCompleted {
		return ErrSessionCompleted
	}
	return nil
}

// Claim moves the current round from pending to claimed and charges the
// claimant's token budget. Only the first claim on a round succeeds.
func (r Rules) Claim(s *model.GameSession, claimant string, tokens int, now time.Time) error {
	if tokens < 0 {
		return ErrNegativeTokens
	}
	if err := checkInProgress(s); err != nil {
		return err
	}
	if err := checkSeated(s, claimant); err != nil {
		return err
	}

	round := s.Round()
	if round.Status != model.RoundPending {
		return fmt.Errorf("%w: %s is %s", ErrRoundResolved, round.Name, round.Status)
	}
	if _, declared := round.Declarations[claimant]; declared {
		return ErrAlreadyDeclared
	}
	if err := Ledger(s.TokensUsed).Charge(claimant, tokens); err != nil {
		return err
	}

	round.Status = model.RoundClaimed
	round.ClaimedBy = claimant
	round.ClaimTokens = tokens
	round.ClaimedAt = &now
	s.UpdatedAt = now
	return nil
}

// Declare records the hand a non-claiming player is left holding. It may
// be sent before or after a claim, and replaces any earlier declaration,
// until the round is resolved.
func (r Rules) Declare(s *model.GameSession, declarant string, declarations model.Declaration, now time.Time) error {
	if _, err := CalculatePoints(declarations); err != nil {
		return err
	}
	if err := checkInProgress(s); err != nil {
		return err
	}
	if err := checkSeated(s, declarant); err != nil {
		return err
	}

	round := s.Round()
	if round.Status.Resolved() {
		return fmt.Errorf("%w: %s is %s", ErrRoundResolved, round.Name, round.Status)
	}
	if round.ClaimedBy == declarant {
		return ErrClaimantDeclaration
	}

	round.Declarations[declarant] = declarations.Clone()
	s.UpdatedAt = now
	return nil
}

// Approve resolves the active claim. It scores the round, then either
// opens the next round with the dealer to act or, after the last round,
// completes the session. It reports whether the session completed.
func (r Rules) Approve(s *model.GameSession, approver string, approved bool, now time.Time) (bool, error) {
	if err := checkInProgress(s); err != nil {
		return false, err
	}
	if err := checkSeated(s, approver); err != nil {
		return false, err
	}

	round := s.Round()
	if round.Status != model.RoundClaimed {
		return false, ErrNothingToApprove
	}
	if approver == round.ClaimedBy {
		return false, ErrSelfApproval
	}

	points, err := ScoreRound(s.Usernames(), round, approved)
	if err != nil {
		return false, err
	}

	round.Points = points
	round.ApprovedBy = approver
	round.ResolvedAt = &now
	if approved {
		round.Status = model.RoundCompleted
		round.Winner = round.ClaimedBy
	} else {
		round.Status = model.RoundPenalized
	}
	s.UpdatedAt = now

	if s.CurrentRound < LastRound {
		s.CurrentRound++
		s.CurrentTurn = s.Dealer
		return false, nil
	}
	r.finish(s, now)
	return true, nil
}

// End completes the session and freezes the results. Ending before the
// last round is resolved is a forced end; unresolved rounds score nothing.
func (r Rules) End(s *model.GameSession, now time.Time) error {
	if err := checkInProgress(s); err != nil {
		return err
	}
	r.finish(s, now)
	return nil
}

func (r Rules) finish(s *model.GameSession, now time.Time) {
	order := s.Usernames()
	totals, penalties := Aggregate(order, s.Rounds)

	details := make([]model.RoundSummary, len(s.Rounds))
	for i, round := range s.Rounds {
		pts := round.Points
		if pts == nil {
			pts = map[string]model.RoundPoints{}
		}
		details[i] = model.RoundSummary{
			Name:   round.Name,
			Status: round.Status,
			Points: pts,
			Winner: round.Winner,
		}
	}

	last := s.Rounds[LastRound].Status
	s.Results = &model.Results{
		Points:       totals,
		Penalties:    penalties,
		Winner:       DetermineWinner(totals, penalties, order, r.TieBreak),
		Forced:       !(s.CurrentRound == LastRound && last.Resolved()),
		EndedAt:      now,
		RoundDetails: details,
	}
	s.Status = model.SessionCompleted
	s.UpdatedAt = now
}

// RecordAction validates an ancillary move and returns the patch that
// appends it to the action log.
func (r Rules) RecordAction(s *model.GameSession, id, actor string, action model.Action, now time.Time) (model.SessionPatch, error) {
	if err := checkSeated(s, actor); err != nil {
		return model.SessionPatch{}, err
	}
	if err := validateAction(action); err != nil {
		return model.SessionPatch{}, err
	}
	rec := model.ActionRecord{ID: id, Actor: actor, Action: action, Timestamp: now}
	return model.SessionPatch{AppendActions: []model.ActionRecord{rec}, UpdatedAt: now}, nil
}

func validateAction(a model.Action) error {
	if !a.WellFormed() {
		return fmt.Errorf("%w: kind %q", ErrInvalidAction, a.Kind)
	}
	switch a.Kind {
	case model.ActionCardPurchase:
		if a.Purchase.Card == "" || a.Purchase.Tokens < 0 {
			return fmt.Errorf("%w: purchase needs a card and non-negative tokens", ErrInvalidAction)
		}
	case model.ActionCardDiscard:
		if a.Discard.Card == "" {
			return fmt.Errorf("%w: discard needs a card", ErrInvalidAction)
		}
	case model.ActionGamePlayed:
		if a.GamePlayed.GameType == "" || len(a.GamePlayed.Cards) == 0 {
			return fmt.Errorf("%w: game needs a type and cards", ErrInvalidAction)
		}
	}
	return nil
}

// EndTurn returns the patch handing the turn to next. An empty next
// advances to the following seat.
func (r Rules) EndTurn(s *model.GameSession, next string, now time.Time) (model.SessionPatch, error) {
	if err := checkInProgress(s); err != nil {
		return model.SessionPatch{}, err
	}
	if next == "" {
		next = NextTurn(s.CurrentTurn, s.Usernames())
	}
	if err := checkSeated(s, next); err != nil {
		return model.SessionPatch{}, err
	}
	return model.SessionPatch{CurrentTurn: &next, UpdatedAt: now}, nil
}

// SetPlayerStatus returns the patch moving a player to status. Leaving
// or disconnecting does not affect the round in play.
func (r Rules) SetPlayerStatus(s *model.GameSession, player string, status model.PlayerStatus, now time.Time) (model.SessionPatch, error) {
	if !status.Valid() {
		return model.SessionPatch{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := checkSeated(s, player); err != nil {
		return model.SessionPatch{}, err
	}
	return model.SessionPatch{
		PlayerStatus: map[string]model.PlayerStatus{player: status},
		UpdatedAt:    now,
	}, nil
}
