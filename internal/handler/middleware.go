package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"telefunken-server/internal/config"
)

type ctxKey struct{}

// WithPlayer returns a context carrying the authenticated username.
func WithPlayer(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKey{}, username)
}

// PlayerFrom returns the authenticated username, if any.
func PlayerFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ctxKey{}).(string)
	return name, ok && name != ""
}

// Identity resolves the acting player of a request. With a JWT secret the
// player comes from a signed HS256 bearer token; without one the identity
// header is trusted.
type Identity struct {
	secret []byte
	claim  string
	header string
}

// NewIdentity creates an Identity from the auth configuration.
func NewIdentity(cfg config.AuthConfig) *Identity {
	claim := cfg.UsernameClaim
	if claim == "" {
		claim = "username"
	}
	header := cfg.IdentityHeader
	if header == "" {
		header = "X-Player-ID"
	}
	id := &Identity{claim: claim, header: header}
	if cfg.JWTSecret != "" {
		id.secret = []byte(cfg.JWTSecret)
	}
	return id
}

// Middleware rejects requests without a resolvable player.
func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, err := i.Resolve(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), name)))
	})
}

// Resolve returns the player making the request.
func (i *Identity) Resolve(r *http.Request) (string, error) {
	if i.secret == nil {
		name := strings.TrimSpace(r.Header.Get(i.header))
		if name == "" {
			return "", fmt.Errorf("%w: %s header is required", ErrUnauthenticated, i.header)
		}
		return name, nil
	}

	raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if raw == "" {
		// Browsers cannot set headers on a WebSocket handshake.
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", fmt.Errorf("%w: bearer token is required", ErrUnauthenticated)
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthenticated
	}
	name, _ := claims[i.claim].(string)
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: token has no %s claim", ErrUnauthenticated, i.claim)
	}
	return name, nil
}

// IssueToken signs a token for username. It is used by tests and tooling.
func (i *Identity) IssueToken(username string, ttl time.Duration) (string, error) {
	if i.secret == nil {
		return "", fmt.Errorf("no jwt secret configured")
	}
	claims := jwt.MapClaims{
		i.claim: username,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
