// Package model defines the data models for the Telefunken game server.
package model

import "time"

// PlayerStatus is the connection state of a seated player.
type PlayerStatus string

const (
	PlayerActive       PlayerStatus = "active"
	PlayerLeft         PlayerStatus = "left"
	PlayerDisconnected PlayerStatus = "disconnected"
)

// Valid reports whether s is a known player status.
func (s PlayerStatus) Valid() bool {
	switch s {
	case PlayerActive, PlayerLeft, PlayerDisconnected:
		return true
	}
	return false
}

// RoundStatus is the lifecycle state of a round.
// Rounds only move pending -> claimed -> completed|penalized.
type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundClaimed   RoundStatus = "claimed"
	RoundCompleted RoundStatus = "completed"
	RoundPenalized RoundStatus = "penalized"
)

// Resolved reports whether the round has been approved or rejected.
func (s RoundStatus) Resolved() bool {
	return s == RoundCompleted || s == RoundPenalized
}

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Player is a seat in a game session. Players are never removed, only
// moved between statuses.
type Player struct {
	Username string       `json:"username"`
	Status   PlayerStatus `json:"status"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// Declaration maps a card rank to how many of that rank a player holds.
type Declaration map[string]int

// RoundPoints is one player's score for a resolved round.
type RoundPoints struct {
	Total        int         `json:"total"`
	Declarations Declaration `json:"declarations"`
	Penalty      int         `json:"penalty"`
}

// Round is one of the seven fixed card-combination challenges.
type Round struct {
	Name         string                 `json:"name"`
	Status       RoundStatus            `json:"status"`
	ClaimedBy    string                 `json:"claimedBy,omitempty"`
	ClaimTokens  int                    `json:"claimTokens,omitempty"`
	ApprovedBy   string                 `json:"approvedBy,omitempty"`
	Declarations map[string]Declaration `json:"declarations"`
	Points       map[string]RoundPoints `json:"points,omitempty"`
	Winner       string                 `json:"winner,omitempty"`
	ClaimedAt    *time.Time             `json:"claimedAt,omitempty"`
	ResolvedAt   *time.Time             `json:"resolvedAt,omitempty"`
}

// RoundSummary is the per-round section of the final results.
type RoundSummary struct {
	Name   string                 `json:"name"`
	Status RoundStatus            `json:"status"`
	Points map[string]RoundPoints `json:"points"`
	Winner string                 `json:"winner,omitempty"`
}

// Results is the frozen outcome of a completed session.
type Results struct {
	Points       map[string]int `json:"points"`
	Penalties    map[string]int `json:"penalties"`
	Winner       string         `json:"winner"`
	Forced       bool           `json:"forced"`
	EndedAt      time.Time      `json:"endedAt"`
	RoundDetails []RoundSummary `json:"roundDetails"`
}

// GameSession is the canonical state of one match.
type GameSession struct {
	SessionID    string         `json:"sessionId"`
	SessionCode  string         `json:"sessionCode"`
	Dealer       string         `json:"dealer"`
	CurrentTurn  string         `json:"currentTurn"`
	Players      []Player       `json:"players"`
	Status       SessionStatus  `json:"status"`
	Rounds       []Round        `json:"rounds"`
	CurrentRound int            `json:"currentRound"`
	TokensUsed   map[string]int `json:"tokensUsed"`
	Actions      []ActionRecord `json:"actions"`
	Results      *Results       `json:"results,omitempty"`
	Version      int64          `json:"version"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// PlayerHistory is a completed-session record for one player.
type PlayerHistory struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	SessionCode string    `db:"session_code" json:"sessionCode"`
	TotalPoints int       `db:"total_points" json:"totalPoints"`
	Penalties   int       `db:"penalties" json:"penalties"`
	TokensUsed  int       `db:"tokens_used" json:"tokensUsed"`
	RoundsWon   int       `db:"rounds_won" json:"roundsWon"`
	Won         bool      `db:"won" json:"won"`
	CompletedAt time.Time `db:"completed_at" json:"completedAt"`
}

// Player returns the seated player with the given username.
func (s *GameSession) Player(username string) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].Username == username {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// Usernames returns the player names in seating order.
func (s *GameSession) Usernames() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Username
	}
	return names
}

// Round returns the round currently being played.
func (s *GameSession) Round() *Round {
	return &s.Rounds[s.CurrentRound]
}

// Clone returns a deep copy of the session so a transition can be applied
// without touching the original.
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.Players = append([]Player(nil), s.Players...)
	c.TokensUsed = make(map[string]int, len(s.TokensUsed))
	for k, v := range s.TokensUsed {
		c.TokensUsed[k] = v
	}
	c.Actions = make([]ActionRecord, len(s.Actions))
	for i, a := range s.Actions {
		c.Actions[i] = a.clone()
	}
	c.Rounds = make([]Round, len(s.Rounds))
	for i := range s.Rounds {
		c.Rounds[i] = s.Rounds[i].clone()
	}
	if s.Results != nil {
		r := s.Results.clone()
		c.Results = &r
	}
	return &c
}

func (r Round) clone() Round {
	c := r
	c.Declarations = make(map[string]Declaration, len(r.Declarations))
	for k, d := range r.Declarations {
		c.Declarations[k] = d.Clone()
	}
	if r.Points != nil {
		c.Points = clonePoints(r.Points)
	}
	if r.ClaimedAt != nil {
		t := *r.ClaimedAt
		c.ClaimedAt = &t
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}

func (r Results) clone() Results {
	c := r
	c.Points = cloneInts(r.Points)
	c.Penalties = cloneInts(r.Penalties)
	c.RoundDetails = make([]RoundSummary, len(r.RoundDetails))
	for i, d := range r.RoundDetails {
		d.Points = clonePoints(d.Points)
		c.RoundDetails[i] = d
	}
	return c
}

// Clone returns a copy of the declaration.
func (d Declaration) Clone() Declaration {
	c := make(Declaration, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

func clonePoints(m map[string]RoundPoints) map[string]RoundPoints {
	c := make(map[string]RoundPoints, len(m))
	for k, p := range m {
		p.Declarations = p.Declarations.Clone()
		c[k] = p
	}
	return c
}

func cloneInts(m map[string]int) map[string]int {
	c := make(map[string]int, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
