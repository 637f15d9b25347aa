package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Sessions *SessionHandler
	History  *HistoryHandler
	Identity *Identity
	// Health is optional. A nil checker always reports ok.
	Health HealthChecker
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(cfg.Health))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Identity.Middleware)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", cfg.Sessions.HandleStart)
			r.Get("/", cfg.Sessions.HandleFind)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Sessions.HandleGet)
				r.Get("/ws", cfg.Sessions.HandleSubscribe)
				r.Post("/claim", cfg.Sessions.HandleClaim)
				r.Post("/declare", cfg.Sessions.HandleDeclare)
				r.Post("/approve", cfg.Sessions.HandleApprove)
				r.Post("/actions", cfg.Sessions.HandleRecordAction)
				r.Post("/turn", cfg.Sessions.HandleEndTurn)
				r.Post("/players/{username}/status", cfg.Sessions.HandleSetPlayerStatus)
				r.Post("/end", cfg.Sessions.HandleEnd)
			})
		})

		r.Get("/players/{username}/history", cfg.History.HandleList)
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := checker.HealthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
