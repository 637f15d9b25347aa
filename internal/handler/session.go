// Package handler exposes the session and history services over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
	"telefunken-server/internal/service"
)

// RoomServer streams a room's events over a WebSocket connection.
type RoomServer interface {
	Serve(w http.ResponseWriter, r *http.Request, room, user string) error
}

// SessionHandler handles game session requests.
type SessionHandler struct {
	sessions *service.SessionService
	rooms    RoomServer
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(sessions *service.SessionService, rooms RoomServer) *SessionHandler {
	return &SessionHandler{sessions: sessions, rooms: rooms}
}

// sessionResponse is a snapshot plus the derived token balances.
type sessionResponse struct {
	*model.GameSession
	TokensRemaining map[string]int `json:"tokensRemaining"`
}

func newSessionResponse(s *model.GameSession) sessionResponse {
	ledger := telefunken.Ledger(s.TokensUsed)
	remaining := make(map[string]int, len(s.Players))
	for _, name := range s.Usernames() {
		remaining[name] = ledger.Remaining(name)
	}
	return sessionResponse{GameSession: s, TokensRemaining: remaining}
}

type startRequest struct {
	SessionID   string   `json:"sessionId"`
	SessionCode string   `json:"sessionCode"`
	Players     []string `json:"players"`
}

// HandleStart handles POST /sessions.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sessions.Start(r.Context(), service.StartRequest{
		SessionID:   req.SessionID,
		SessionCode: req.SessionCode,
		Players:     req.Players,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(s))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// HandleFind handles GET /sessions?code=.
func (h *SessionHandler) HandleFind(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, fmt.Errorf("%w: code query parameter is required", telefunken.ErrValidation))
		return
	}
	s, err := h.sessions.FindByCode(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

type claimRequest struct {
	TokenCount int `json:"tokenCount"`
}

// HandleClaim handles POST /sessions/{id}/claim.
func (h *SessionHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	player, _ := PlayerFrom(r.Context())

	s, err := h.sessions.ClaimRound(r.Context(), chi.URLParam(r, "id"), player, req.TokenCount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

type declareRequest struct {
	Declarations model.Declaration `json:"declarations"`
}

// HandleDeclare handles POST /sessions/{id}/declare.
func (h *SessionHandler) HandleDeclare(w http.ResponseWriter, r *http.Request) {
	var req declareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Declarations == nil {
		req.Declarations = model.Declaration{}
	}
	player, _ := PlayerFrom(r.Context())

	s, err := h.sessions.DeclareCards(r.Context(), chi.URLParam(r, "id"), player, req.Declarations)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

type approveRequest struct {
	Approved *bool `json:"approved"`
}

// HandleApprove handles POST /sessions/{id}/approve.
func (h *SessionHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Approved == nil {
		writeError(w, r, fmt.Errorf("%w: approved is required", telefunken.ErrValidation))
		return
	}
	player, _ := PlayerFrom(r.Context())

	s, err := h.sessions.ApproveRound(r.Context(), chi.URLParam(r, "id"), player, *req.Approved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

type actionRequest struct {
	Kind    model.ActionKind `json:"kind"`
	Payload json.RawMessage  `json:"payload"`
}

// toAction decodes the payload into the struct selected by kind.
func (req actionRequest) toAction() (model.Action, error) {
	a := model.Action{Kind: req.Kind}
	var target any
	switch req.Kind {
	case model.ActionCardPurchase:
		a.Purchase = &model.CardPurchase{}
		target = a.Purchase
	case model.ActionCardDiscard:
		a.Discard = &model.CardDiscard{}
		target = a.Discard
	case model.ActionGamePlayed:
		a.GamePlayed = &model.GamePlayed{}
		target = a.GamePlayed
	case model.ActionJokerUse:
		a.JokerUse = &model.JokerUse{}
		target = a.JokerUse
	case model.ActionPlay:
		a.Play = &model.Play{}
		target = a.Play
	default:
		return a, fmt.Errorf("%w: kind %q", telefunken.ErrInvalidAction, req.Kind)
	}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, target); err != nil {
			return a, fmt.Errorf("%w: %v", telefunken.ErrInvalidAction, err)
		}
	}
	return a, nil
}

// HandleRecordAction handles POST /sessions/{id}/actions.
func (h *SessionHandler) HandleRecordAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	action, err := req.toAction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	player, _ := PlayerFrom(r.Context())

	rec, err := h.sessions.RecordAction(r.Context(), chi.URLParam(r, "id"), player, action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type turnRequest struct {
	NextPlayer string `json:"nextPlayer"`
}

// HandleEndTurn handles POST /sessions/{id}/turn.
func (h *SessionHandler) HandleEndTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sessions.EndTurn(r.Context(), chi.URLParam(r, "id"), req.NextPlayer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

type statusRequest struct {
	Status model.PlayerStatus `json:"status"`
}

// HandleSetPlayerStatus handles POST /sessions/{id}/players/{username}/status.
func (h *SessionHandler) HandleSetPlayerStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sessions.SetPlayerStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "username"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// HandleEnd handles POST /sessions/{id}/end.
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.End(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// HandleSubscribe handles GET /sessions/{id}/ws.
func (h *SessionHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	player, _ := PlayerFrom(r.Context())

	if err := h.rooms.Serve(w, r, id, player); err != nil {
		log.Debug().Err(err).Str("session_id", id).Str("player", player).Msg("WebSocket closed")
	}
}
