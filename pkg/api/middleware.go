package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/strombasis/mako-assistant/pkg/errors"
	"github.com/strombasis/mako-assistant/pkg/logging"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUserID    contextKey = "user_id"
)

// userIDHeader carries the authenticated principal. Authentication itself
// happens upstream; makod trusts the gateway-injected header.
const userIDHeader = "X-User-Id"

// requestID middleware assigns a ULID to every request and echoes it back.
// ulid.Make draws from the package's locked entropy source, so concurrent
// requests are safe.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity middleware extracts the principal from the gateway header.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		if userID == "" {
			writeError(w, errors.New(errors.ErrCodeInvalidRequest, http.StatusUnauthorized,
				"X-User-Id Header ist erforderlich"))
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit guards an endpoint class with the keyed limiter. Denials are
// fail-closed 429s.
func (s *Server) rateLimit(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())
		if s.limiter != nil && !s.limiter.Allow(userID, endpoint) {
			s.log.Warn(logging.CategoryAPI, "rate_limited", "request rejected by rate limiter",
				map[string]any{"endpoint": endpoint})
			writeError(w, errors.New(errors.ErrCodeRateLimited, http.StatusTooManyRequests,
				"Zu viele Anfragen, bitte später erneut versuchen"))
			return
		}
		next(w, r)
	}
}

func userIDFrom(ctx context.Context) string {
	userID, _ := ctx.Value(contextKeyUserID).(string)
	return userID
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
