package model

import "time"

// SessionPatch is a partial update of a session that does not touch the
// round track. Stores translate it into their own partial writes.
type SessionPatch struct {
	CurrentTurn   *string                 `json:"currentTurn,omitempty"`
	AppendActions []ActionRecord          `json:"appendActions,omitempty"`
	PlayerStatus  map[string]PlayerStatus `json:"playerStatus,omitempty"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// Empty reports whether the patch changes nothing besides UpdatedAt.
func (p SessionPatch) Empty() bool {
	return p.CurrentTurn == nil && len(p.AppendActions) == 0 && len(p.PlayerStatus) == 0
}

// Apply writes the patch onto s and bumps its version.
func (p SessionPatch) Apply(s *GameSession) {
	if p.CurrentTurn != nil {
		s.CurrentTurn = *p.CurrentTurn
	}
	for _, a := range p.AppendActions {
		s.Actions = append(s.Actions, a.clone())
	}
	for name, status := range p.PlayerStatus {
		if pl, ok := s.Player(name); ok {
			pl.Status = status
		}
	}
	if !p.UpdatedAt.IsZero() {
		s.UpdatedAt = p.UpdatedAt
	}
	s.Version++
}
