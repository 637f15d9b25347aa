package telefunken

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telefunken-server/internal/model"
)

func TestCardValue(t *testing.T) {
	tests := []struct {
		rank string
		want int
	}{
		{"2", 5}, {"5", 5}, {"9", 5},
		{"10", 10}, {"J", 10}, {"Q", 10}, {"K", 10},
		{"A", 15},
		{"Joker", 50},
	}
	for _, tt := range tests {
		t.Run(tt.rank, func(t *testing.T) {
			got, err := CardValue(tt.rank)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"1", "11", "joker", "a", ""} {
		_, err := CardValue(bad)
		assert.ErrorIs(t, err, ErrInvalidRank, "rank %q", bad)
		assert.ErrorIs(t, err, ErrValidation)
	}

	for _, r := range Ranks() {
		assert.True(t, ValidRank(r), r)
	}
}

func TestCalculatePoints(t *testing.T) {
	// 2×15 + 1×50
	got, err := CalculatePoints(model.Declaration{"A": 2, "Joker": 1})
	require.NoError(t, err)
	assert.Equal(t, 80, got)

	got, err = CalculatePoints(model.Declaration{"3": 2, "K": 1, "10": 0})
	require.NoError(t, err)
	assert.Equal(t, 20, got)

	got, err = CalculatePoints(nil)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCalculatePoints_RejectsWholeDeclaration(t *testing.T) {
	_, err := CalculatePoints(model.Declaration{"A": 1, "Z": 1})
	assert.ErrorIs(t, err, ErrInvalidRank)

	_, err = CalculatePoints(model.Declaration{"A": -1})
	assert.ErrorIs(t, err, ErrNegativeCount)
}

func TestCalculatePoints_CountBounds(t *testing.T) {
	total, err := CalculatePoints(model.Declaration{"Joker": MaxCardCount})
	require.NoError(t, err)
	assert.Equal(t, MaxCardCount*JokerValue, total)

	for _, count := range []int{MaxCardCount + 1, math.MaxInt/JokerValue + 1, math.MaxInt} {
		_, err := CalculatePoints(model.Declaration{"2": 1, "Joker": count})
		assert.ErrorIs(t, err, ErrCountTooLarge, "count %d", count)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestScoreRound(t *testing.T) {
	players := []string{"P1", "P2", "P3"}
	round := &model.Round{
		ClaimedBy: "P2",
		Declarations: map[string]model.Declaration{
			"P1": {"A": 1},
			"P3": {"Joker": 1, "2": 2},
		},
	}

	approved, err := ScoreRound(players, round, true)
	require.NoError(t, err)
	assert.Equal(t, 0, approved["P2"].Total)
	assert.Equal(t, 15, approved["P1"].Total)
	assert.Equal(t, 60, approved["P3"].Total)
	assert.Equal(t, model.Declaration{"A": 1}, approved["P1"].Declarations)

	rejected, err := ScoreRound(players, round, false)
	require.NoError(t, err)
	assert.Equal(t, FalseClaimCost, rejected["P2"].Total)
	assert.Equal(t, FalseClaimCost, rejected["P2"].Penalty)
	assert.Equal(t, 15, rejected["P1"].Total)
	assert.Zero(t, rejected["P1"].Penalty)
}

func TestScoreRound_UndeclaredPlayerScoresZero(t *testing.T) {
	round := &model.Round{ClaimedBy: "P1", Declarations: map[string]model.Declaration{}}
	points, err := ScoreRound([]string{"P1", "P2"}, round, true)
	require.NoError(t, err)
	require.Contains(t, points, "P2")
	assert.Zero(t, points["P2"].Total)
}

func TestAggregate(t *testing.T) {
	rounds := []model.Round{
		{Points: map[string]model.RoundPoints{"P1": {Total: 10}, "P2": {Total: 50, Penalty: 50}}},
		{Points: map[string]model.RoundPoints{"P1": {Total: 5}, "P2": {Total: 0}}},
		{},
	}
	totals, penalties := Aggregate([]string{"P1", "P2", "P3"}, rounds)
	assert.Equal(t, map[string]int{"P1": 15, "P2": 50, "P3": 0}, totals)
	assert.Equal(t, map[string]int{"P1": 0, "P2": 50, "P3": 0}, penalties)
}

func TestDetermineWinner(t *testing.T) {
	order := []string{"P1", "P2", "P3"}

	assert.Equal(t, "P2", DetermineWinner(map[string]int{"P1": 40, "P2": 10, "P3": 30}, nil, order, TieBreakSeat))

	// Tie between P2 and P3: seat order keeps P2.
	totals := map[string]int{"P1": 40, "P2": 10, "P3": 10}
	penalties := map[string]int{"P1": 0, "P2": 50, "P3": 0}
	assert.Equal(t, "P2", DetermineWinner(totals, penalties, order, TieBreakSeat))
	assert.Equal(t, "P3", DetermineWinner(totals, penalties, order, TieBreakPenalties))

	// Equal penalties fall back to seat order.
	assert.Equal(t, "P2", DetermineWinner(totals, map[string]int{}, order, TieBreakPenalties))

	assert.Empty(t, DetermineWinner(map[string]int{}, nil, order, TieBreakSeat))
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakSeat, tb)

	tb, err = ParseTieBreak("penalties")
	require.NoError(t, err)
	assert.Equal(t, TieBreakPenalties, tb)

	_, err = ParseTieBreak("coin")
	assert.Error(t, err)
}
