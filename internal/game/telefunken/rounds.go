package telefunken

import "telefunken-server/internal/model"

// Round names in play order. The track always has exactly these seven.
var roundNames = [...]string{
	"Trío",
	"Dos Tríos",
	"Cuarteto",
	"Dos Cuartetos",
	"Quinteto",
	"Dos Quintetos",
	"Escalera",
}

// RoundCount is the length of the round track.
const RoundCount = len(roundNames)

// LastRound is the index of the final round.
const LastRound = RoundCount - 1

// RoundNames returns the names of the round track in order.
func RoundNames() []string {
	return append([]string(nil), roundNames[:]...)
}

// NewRoundTrack returns the seven rounds, all pending.
func NewRoundTrack() []model.Round {
	rounds := make([]model.Round, RoundCount)
	for i, name := range roundNames {
		rounds[i] = model.Round{
			Name:         name,
			Status:       model.RoundPending,
			Declarations: make(map[string]model.Declaration),
		}
	}
	return rounds
}
