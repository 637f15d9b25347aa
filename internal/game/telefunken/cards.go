// Package telefunken implements the rules of a Telefunken rummy session:
// the round track, the token ledger, dealer rotation, scoring and the
// claim/approve state transitions.
//
// Everything here is pure: functions mutate the *model.GameSession they
// are given and never perform I/O. Callers serialize access per session.
package telefunken

import "fmt"

// Card point values.
const (
	LowCardValue   = 5  // 2..9
	HighCardValue  = 10 // 10, J, Q, K
	AceValue       = 15
	JokerValue     = 50
	FalseClaimCost = 50 // charged to a claimant whose claim is rejected
)

// MaxCardCount bounds how many cards of one rank a hand can hold: two
// 52-card decks plus four jokers.
const MaxCardCount = 108

// CardValue returns the points a remaining card of the given rank costs.
func CardValue(rank string) (int, error) {
	switch rank {
	case "2", "3", "4", "5", "6", "7", "8", "9":
		return LowCardValue, nil
	case "10", "J", "Q", "K":
		return HighCardValue, nil
	case "A":
		return AceValue, nil
	case "Joker":
		return JokerValue, nil
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidRank, rank)
}

// ValidRank reports whether rank is part of the deck.
func ValidRank(rank string) bool {
	_, err := CardValue(rank)
	return err == nil
}

// Ranks lists every valid rank, lowest first.
func Ranks() []string {
	return []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "Joker"}
}
