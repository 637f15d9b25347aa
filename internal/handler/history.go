package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
	"telefunken-server/internal/service"
)

// HistoryHandler serves completed-game history.
type HistoryHandler struct {
	history *service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler instance.
func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

type historyResponse struct {
	Username string                `json:"username"`
	Games    []model.PlayerHistory `json:"games"`
}

// HandleList handles GET /players/{username}/history.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", telefunken.ErrValidation))
			return
		}
		limit = n
	}

	username := chi.URLParam(r, "username")
	games, err := h.history.PlayerHistory(r.Context(), username, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Username: username, Games: games})
}
