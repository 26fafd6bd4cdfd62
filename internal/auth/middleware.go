package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// SessionReader is the subset of the session manager the middleware needs.
type SessionReader interface {
	Get(ctx context.Context, token string) (shared.SessionData, error)
}

// Authenticator turns a bearer token into a shared.Actor on the request
// context. Requests without a valid session are rejected before any handler
// runs.
type Authenticator struct {
	Logger   *slog.Logger
	Sessions SessionReader
}

// Middleware is the chi-compatible session check.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		data, err := a.Sessions.Get(r.Context(), token)
		if err != nil {
			if !errors.Is(err, shared.ErrSessionNotFound) {
				a.Logger.Error("session lookup", slog.Any("error", err))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		clientID, err := uuid.Parse(data.ClientID)
		if err != nil {
			a.Logger.Error("session holds malformed client id", slog.String("client_id", data.ClientID))
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		actor := shared.Actor{
			UserID:      data.UserID,
			ClientID:    clientID,
			Email:       data.Email,
			Permissions: data.Permissions,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// TokenFromRequest extracts the bearer token, empty when absent.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
