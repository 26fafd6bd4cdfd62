package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. Permissions
// are resolved from the actor placed in the request context by the session
// middleware, so no storage round trip happens per request.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			for _, p := range normalized {
				if actor.Can(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, actor.Email, normalized)
		})
	}
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			for _, p := range normalized {
				if !actor.Can(p) {
					m.deny(w, actor.Email, normalized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, email string, required []string) {
	if m.Logger != nil {
		m.Logger.Warn("permission denied",
			slog.String("actor", email),
			slog.String("required", strings.Join(required, ",")))
	}
	httpx.RespondError(w, httpx.ErrForbidden)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
