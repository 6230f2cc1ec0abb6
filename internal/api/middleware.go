// internal/api/middleware.go

// Package api is the HTTP surface. It translates requests into service calls
// and typed errors into responses; no business rules live here.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/metrics"
	"shiftwork-backend/internal/models"
)

// ctxKey is a custom type for context keys to avoid collisions.
type ctxKey string

const principalKey ctxKey = "principal"

// Principal headers set by the upstream auth layer. This service trusts them;
// authentication happens before traffic reaches it.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
	headerUserRole  = "X-User-Role"

	bearerPrefix = "Bearer "
)

// RequirePrincipal resolves the caller's identity from the trusted headers,
// falling back to a session token from the store when the headers are absent,
// and stashes the principal in the request context for handlers.
func RequirePrincipal(errs *errors.HTTPHandler, sessions *cache.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principalFromHeaders(r)
			if p == nil {
				p = principalFromSession(r, sessions)
			}
			if p == nil {
				errs.WriteError(w, errors.NewValidationError("missing identity headers"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		})
	}
}

func principalFromHeaders(r *http.Request) *models.Principal {
	p := &models.Principal{
		ID:    r.Header.Get(headerUserID),
		Email: r.Header.Get(headerUserEmail),
		Role:  r.Header.Get(headerUserRole),
	}
	if p.ID == "" || p.Role == "" {
		return nil
	}
	return p
}

func principalFromSession(r *http.Request, sessions *cache.SessionStore) *models.Principal {
	if sessions == nil {
		return nil
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return nil
	}
	p, ok := sessions.Lookup(r.Context(), strings.TrimPrefix(auth, bearerPrefix))
	if !ok {
		return nil
	}
	return &p
}

// PrincipalFrom returns the authenticated principal, which RequirePrincipal
// guarantees for routes behind it.
func PrincipalFrom(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalKey).(*models.Principal)
	return p
}

// RequestMetrics records a counter and latency histogram per route pattern.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}
