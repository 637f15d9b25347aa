package telefunken

import "fmt"

// TokenCap is the number of tokens each player may spend in a session.
const TokenCap = 12

// Ledger is a view over a session's tokensUsed map.
type Ledger map[string]int

// Used returns the tokens a player has spent so far.
func (l Ledger) Used(player string) int {
	return l[player]
}

// Remaining returns how many tokens a player may still spend.
func (l Ledger) Remaining(player string) int {
	return TokenCap - l[player]
}

// CanCharge reports whether n more tokens fit under the cap.
func (l Ledger) CanCharge(player string, n int) bool {
	return n >= 0 && n <= TokenCap-l[player]
}

// Charge adds n tokens to the player's spend. It either applies the full
// amount or nothing.
func (l Ledger) Charge(player string, n int) error {
	if n < 0 {
		return ErrNegativeTokens
	}
	if !l.CanCharge(player, n) {
		return fmt.Errorf("%w: %s has used %d of %d, cannot add %d",
			ErrTokenBudgetExceeded, player, l[player], TokenCap, n)
	}
	l[player] += n
	return nil
}
