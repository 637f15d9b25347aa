package model

// Event names broadcast to a session room. The first five are consumed by
// existing clients and must keep their spelling.
const (
	EventGameStarted         = "gameStarted"
	EventRoundClaimed        = "roundClaimed"
	EventCardsDeclared       = "cardsDeclared"
	EventRoundApproved       = "roundApproved"
	EventGameEnded           = "gameEnded"
	EventActionRecorded      = "actionRecorded"
	EventTurnEnded           = "turnEnded"
	EventPlayerStatusChanged = "playerStatusChanged"
)

// RoundClaimedEvent is the payload of roundClaimed.
type RoundClaimedEvent struct {
	SessionID  string `json:"sessionId"`
	RoundIndex int    `json:"roundIndex"`
	RoundName  string `json:"roundName"`
	ClaimedBy  string `json:"claimedBy"`
	TokenCount int    `json:"tokenCount"`
	TokensUsed int    `json:"tokensUsed"`
}

// CardsDeclaredEvent is the payload of cardsDeclared.
type CardsDeclaredEvent struct {
	SessionID    string      `json:"sessionId"`
	RoundIndex   int         `json:"roundIndex"`
	Player       string      `json:"player"`
	Declarations Declaration `json:"declarations"`
}

// RoundApprovedEvent is the payload of roundApproved. Session is the
// snapshot after the transition, including any round advance.
type RoundApprovedEvent struct {
	SessionID  string       `json:"sessionId"`
	RoundIndex int          `json:"roundIndex"`
	Approver   string       `json:"approver"`
	Approved   bool         `json:"approved"`
	Round      Round        `json:"round"`
	Session    *GameSession `json:"session"`
}

// ActionRecordedEvent is the payload of actionRecorded.
type ActionRecordedEvent struct {
	SessionID string       `json:"sessionId"`
	Record    ActionRecord `json:"record"`
}

// TurnEndedEvent is the payload of turnEnded.
type TurnEndedEvent struct {
	SessionID   string `json:"sessionId"`
	CurrentTurn string `json:"currentTurn"`
}

// PlayerStatusChangedEvent is the payload of playerStatusChanged.
type PlayerStatusChangedEvent struct {
	SessionID string       `json:"sessionId"`
	Player    string       `json:"player"`
	Status    PlayerStatus `json:"status"`
}

// GameEndedEvent is the payload of gameEnded.
type GameEndedEvent struct {
	SessionID string   `json:"sessionId"`
	Results   *Results `json:"results"`
}
