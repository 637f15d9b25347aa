package telefunken

import (
	"math/rand"

	"github.com/thoas/go-funk"
)

// Intn returns a uniform integer in [0, n). rand.Intn satisfies it.
type Intn func(n int) int

// AssignDealerAndStarter picks a random dealer. The starter is the next
// seat after the dealer, wrapping around.
func AssignDealerAndStarter(players []string, intn Intn) (dealer, starter string) {
	if len(players) == 0 {
		return "", ""
	}
	if intn == nil {
		intn = rand.Intn
	}
	i := intn(len(players))
	return players[i], players[(i+1)%len(players)]
}

// NextTurn returns the player seated after current, wrapping past the
// last seat. An unknown current player hands the turn to the first seat.
func NextTurn(current string, players []string) string {
	if len(players) == 0 {
		return ""
	}
	i := funk.IndexOfString(players, current)
	if i < 0 {
		return players[0]
	}
	return players[(i+1)%len(players)]
}

// IsParticipant reports whether name is seated.
func IsParticipant(name string, players []string) bool {
	return funk.ContainsString(players, name)
}
