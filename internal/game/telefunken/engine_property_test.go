package telefunken

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"telefunken-server/internal/model"
)

var statusRank = map[model.RoundStatus]int{
	model.RoundPending:   0,
	model.RoundClaimed:   1,
	model.RoundCompleted: 2,
	model.RoundPenalized: 2,
}

// TestSessionInvariantsProperty drives a session with random operations
// and checks after every step that:
//   - no player exceeds the token cap
//   - rounds only move forward, and resolved rounds never change
//   - the round index moves by at most one per step and never backwards
//   - the claimant never declares in the round they claimed
func TestSessionInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "players")
		players := make([]string, n)
		for i := range players {
			players[i] = string(rune('A' + i))
		}

		r := DefaultRules()
		r.Intn = func(k int) int { return rapid.IntRange(0, k-1).Draw(t, "dealer") }
		s, err := r.NewSession("prop", "CODE01", players, t0)
		if err != nil {
			t.Fatalf("start: %v", err)
		}

		ranks := Ranks()
		steps := rapid.IntRange(1, 120).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			prev := s.Clone()
			actor := rapid.SampledFrom(players).Draw(t, "actor")

			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				tokens := rapid.OneOf(
					rapid.IntRange(-1, 6),
					rapid.IntRange(math.MaxInt-8, math.MaxInt),
				).Draw(t, "tokens")
				_ = r.Claim(s, actor, tokens, t0)
			case 1:
				count := rapid.OneOf(rapid.IntRange(0, 3), rapid.IntRange(math.MaxInt/50, math.MaxInt)).Draw(t, "count")
				decl := model.Declaration{rapid.SampledFrom(ranks).Draw(t, "rank"): count}
				_ = r.Declare(s, actor, decl, t0)
			case 2:
				_, _ = r.Approve(s, actor, rapid.Bool().Draw(t, "approved"), t0)
			case 3:
				if rapid.IntRange(0, 20).Draw(t, "forceEnd") == 0 {
					_ = r.End(s, t0)
				}
			}

			checkInvariants(t, prev, s)
		}
	})
}

func checkInvariants(t *rapid.T, prev, s *model.GameSession) {
	sum := 0
	for name, used := range s.TokensUsed {
		if used > TokenCap || used < 0 {
			t.Fatalf("%s has %d tokens", name, used)
		}
		sum += used
	}
	if sum > TokenCap*len(s.Players) {
		t.Fatalf("token total %d", sum)
	}

	if s.CurrentRound < prev.CurrentRound || s.CurrentRound > prev.CurrentRound+1 {
		t.Fatalf("round index moved %d -> %d", prev.CurrentRound, s.CurrentRound)
	}
	if prev.Status == model.SessionCompleted && s.Status != model.SessionCompleted {
		t.Fatal("completed session reopened")
	}

	for i := range s.Rounds {
		before, after := prev.Rounds[i], s.Rounds[i]
		if statusRank[after.Status] < statusRank[before.Status] {
			t.Fatalf("round %d went %s -> %s", i, before.Status, after.Status)
		}
		if before.Status.Resolved() && after.Status != before.Status {
			t.Fatalf("resolved round %d changed to %s", i, after.Status)
		}
		if before.Status != model.RoundPending && after.ClaimedBy != before.ClaimedBy {
			t.Fatalf("round %d claimant changed", i)
		}
		if after.ClaimedBy != "" {
			if _, ok := after.Declarations[after.ClaimedBy]; ok {
				t.Fatalf("claimant %s declared in round %d", after.ClaimedBy, i)
			}
		}
		if after.Status == model.RoundCompleted && after.Winner != after.ClaimedBy {
			t.Fatalf("round %d winner %q, claimant %q", i, after.Winner, after.ClaimedBy)
		}
		if after.Status == model.RoundPenalized && after.Winner != "" {
			t.Fatalf("penalized round %d has a winner", i)
		}
		for name, pts := range after.Points {
			if pts.Total < 0 {
				t.Fatalf("%s scored %d in round %d", name, pts.Total, i)
			}
		}
	}

	if s.Status == model.SessionCompleted && s.Results == nil {
		t.Fatal("completed session without results")
	}
}
