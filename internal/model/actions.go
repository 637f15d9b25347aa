package model

import "time"

// ActionKind identifies the ancillary move recorded in the action log.
type ActionKind string

const (
	ActionCardPurchase ActionKind = "card_purchase"
	ActionCardDiscard  ActionKind = "card_discard"
	ActionGamePlayed   ActionKind = "game_played"
	ActionJokerUse     ActionKind = "joker_use"
	ActionPlay         ActionKind = "play"
)

// CardPurchase records buying a card from the discard pile. Tokens is
// informational; the token ledger is only charged by round claims.
type CardPurchase struct {
	Card   string `json:"card"`
	Tokens int    `json:"tokens"`
}

// CardDiscard records a discarded card.
type CardDiscard struct {
	Card string `json:"card"`
}

// GamePlayed records a meld laid down on the table.
type GamePlayed struct {
	GameType string   `json:"gameType"`
	Cards    []string `json:"cards"`
}

// JokerUse records a joker standing in for another card.
type JokerUse struct {
	Replaces string `json:"replaces"`
}

// Play is a free-form move that has no dedicated kind.
type Play struct {
	Note string `json:"note"`
}

// Action is a tagged variant: Kind selects which payload field is set.
type Action struct {
	Kind       ActionKind    `json:"kind"`
	Purchase   *CardPurchase `json:"purchase,omitempty"`
	Discard    *CardDiscard  `json:"discard,omitempty"`
	GamePlayed *GamePlayed   `json:"gamePlayed,omitempty"`
	JokerUse   *JokerUse     `json:"jokerUse,omitempty"`
	Play       *Play         `json:"play,omitempty"`
}

// payloadCount returns how many payload fields are set.
func (a Action) payloadCount() int {
	n := 0
	if a.Purchase != nil {
		n++
	}
	if a.Discard != nil {
		n++
	}
	if a.GamePlayed != nil {
		n++
	}
	if a.JokerUse != nil {
		n++
	}
	if a.Play != nil {
		n++
	}
	return n
}

// WellFormed reports whether exactly the payload matching Kind is set.
func (a Action) WellFormed() bool {
	if a.payloadCount() != 1 {
		return false
	}
	switch a.Kind {
	case ActionCardPurchase:
		return a.Purchase != nil
	case ActionCardDiscard:
		return a.Discard != nil
	case ActionGamePlayed:
		return a.GamePlayed != nil
	case ActionJokerUse:
		return a.JokerUse != nil
	case ActionPlay:
		return a.Play != nil
	}
	return false
}

// ActionRecord is an entry of the append-only action log.
type ActionRecord struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func (r ActionRecord) clone() ActionRecord {
	c := r
	if r.Action.Purchase != nil {
		p := *r.Action.Purchase
		c.Action.Purchase = &p
	}
	if r.Action.Discard != nil {
		d := *r.Action.Discard
		c.Action.Discard = &d
	}
	if r.Action.GamePlayed != nil {
		g := *r.Action.GamePlayed
		g.Cards = append([]string(nil), g.Cards...)
		c.Action.GamePlayed = &g
	}
	if r.Action.JokerUse != nil {
		j := *r.Action.JokerUse
		c.Action.JokerUse = &j
	}
	if r.Action.Play != nil {
		p := *r.Action.Play
		c.Action.Play = &p
	}
	return c
}
