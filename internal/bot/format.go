package bot

import (
	"fmt"
	"sort"
	"strings"

	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
)

// FormatEvent renders a session event as a chat message. Events that are
// not worth announcing report false.
func FormatEvent(event string, payload any) (string, bool) {
	switch event {
	case model.EventGameStarted:
		s, ok := payload.(*model.GameSession)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("🃏 New Telefunken game %s\nPlayers: %s\nDealer: %s, %s starts",
			s.SessionCode, strings.Join(s.Usernames(), ", "), s.Dealer, s.CurrentTurn), true

	case model.EventRoundClaimed:
		e, ok := payload.(model.RoundClaimedEvent)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("🙋 %s claims %s (round %d) with %d tokens, %d/%d used",
			e.ClaimedBy, e.RoundName, e.RoundIndex+1, e.TokenCount, e.TokensUsed, telefunken.TokenCap), true

	case model.EventRoundApproved:
		e, ok := payload.(model.RoundApprovedEvent)
		if !ok {
			return "", false
		}
		if e.Approved {
			return fmt.Sprintf("✅ %s approved %s's %s", e.Approver, e.Round.ClaimedBy, e.Round.Name), true
		}
		return fmt.Sprintf("❌ %s rejected %s's %s, +%d penalty",
			e.Approver, e.Round.ClaimedBy, e.Round.Name, telefunken.FalseClaimCost), true

	case model.EventGameEnded:
		e, ok := payload.(model.GameEndedEvent)
		if !ok || e.Results == nil {
			return "", false
		}
		var b strings.Builder
		if e.Results.Forced {
			b.WriteString("🛑 Game ended early\n")
		} else {
			b.WriteString("🏁 Game over\n")
		}
		b.WriteString(formatTotals(e.Results.Points))
		fmt.Fprintf(&b, "\n🏆 Winner: %s", e.Results.Winner)
		return b.String(), true

	case model.EventPlayerStatusChanged:
		e, ok := payload.(model.PlayerStatusChangedEvent)
		if !ok || e.Status == model.PlayerActive {
			return "", false
		}
		return fmt.Sprintf("👋 %s is now %s", e.Player, e.Status), true
	}
	return "", false
}

// FormatStandings renders the scoreboard of a session.
func FormatStandings(s *model.GameSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🃏 Game %s (%s)\n", s.SessionCode, s.Status)
	if s.Status == model.SessionInProgress {
		r := s.Round()
		fmt.Fprintf(&b, "Round %d/%d: %s, %s\n", s.CurrentRound+1, telefunken.RoundCount, r.Name, r.Status)
		fmt.Fprintf(&b, "Turn: %s\n", s.CurrentTurn)
	}

	totals, _ := telefunken.Aggregate(s.Usernames(), s.Rounds)
	b.WriteString(formatTotals(totals))
	for _, name := range s.Usernames() {
		fmt.Fprintf(&b, "\n🪙 %s: %d tokens left", name, telefunken.Ledger(s.TokensUsed).Remaining(name))
	}
	return b.String()
}

// formatTotals lists totals lowest first, ties by name.
func formatTotals(totals map[string]int) string {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] < totals[names[j]]
		}
		return names[i] < names[j]
	})

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%d. %s: %d", i+1, name, totals[name])
	}
	return strings.Join(lines, "\n")
}
