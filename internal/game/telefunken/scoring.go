package telefunken

import (
	"fmt"
	"math"

	"telefunken-server/internal/model"
)

// TieBreak selects how a shared minimum total is resolved.
type TieBreak string

const (
	// TieBreakSeat picks the tied player seated first.
	TieBreakSeat TieBreak = "seat"
	// TieBreakPenalties picks the tied player with the fewest penalty
	// points, falling back to seating order.
	TieBreakPenalties TieBreak = "penalties"
)

// ParseTieBreak converts a configuration value into a TieBreak.
// An empty value selects TieBreakSeat.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakSeat:
		return TieBreakSeat, nil
	case TieBreakPenalties:
		return TieBreakPenalties, nil
	}
	return "", fmt.Errorf("unknown tie break %q", s)
}

// CalculatePoints sums count × value over a declared hand. Any invalid
// rank, negative count or count above MaxCardCount rejects the whole
// declaration.
func CalculatePoints(declarations model.Declaration) (int, error) {
	total := 0
	for rank, count := range declarations {
		value, err := CardValue(rank)
		if err != nil {
			return 0, err
		}
		if count < 0 {
			return 0, fmt.Errorf("%w: %s=%d", ErrNegativeCount, rank, count)
		}
		if count > MaxCardCount {
			return 0, fmt.Errorf("%w: %s=%d, at most %d", ErrCountTooLarge, rank, count, MaxCardCount)
		}
		total += count * value
	}
	return total, nil
}

// ScoreRound computes every seated player's points for the current round.
// An approved claimant scores 0; a rejected claimant pays FalseClaimCost.
// Everyone else pays for their declared hand, or 0 if they declared nothing.
func ScoreRound(players []string, round *model.Round, approved bool) (map[string]model.RoundPoints, error) {
	points := make(map[string]model.RoundPoints, len(players))
	for _, name := range players {
		if name == round.ClaimedBy {
			continue
		}
		decl := round.Declarations[name].Clone()
		total, err := CalculatePoints(decl)
		if err != nil {
			return nil, err
		}
		points[name] = model.RoundPoints{Total: total, Declarations: decl}
	}

	if approved {
		points[round.ClaimedBy] = model.RoundPoints{Declarations: model.Declaration{}}
	} else {
		points[round.ClaimedBy] = model.RoundPoints{
			Total:        FalseClaimCost,
			Declarations: model.Declaration{},
			Penalty:      FalseClaimCost,
		}
	}
	return points, nil
}

// Aggregate sums each player's round totals and penalties across all
// rounds. Every seated player is present in both maps.
func Aggregate(players []string, rounds []model.Round) (totals, penalties map[string]int) {
	totals = make(map[string]int, len(players))
	penalties = make(map[string]int, len(players))
	for _, name := range players {
		totals[name] = 0
		penalties[name] = 0
	}
	for _, r := range rounds {
		for name, p := range r.Points {
			totals[name] += p.Total
			penalties[name] += p.Penalty
		}
	}
	return totals, penalties
}

// DetermineWinner returns the player with the lowest total. order is the
// seating order and fixes iteration so the result is deterministic.
func DetermineWinner(totals map[string]int, penalties map[string]int, order []string, rule TieBreak) string {
	winner := ""
	best := math.MaxInt
	for _, name := range order {
		total, ok := totals[name]
		if !ok {
			continue
		}
		switch {
		case total < best:
			winner, best = name, total
		case total == best && rule == TieBreakPenalties && penalties[name] < penalties[winner]:
			winner = name
		}
	}
	return winner
}
