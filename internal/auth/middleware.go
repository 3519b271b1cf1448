package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-admins/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

var (
	errMissingAuth        = shared.NewMessageError(shared.ErrUnauthorized, "Missing authentication.")
	errInvalidCredentials = shared.NewMessageError(shared.ErrUnauthorized, "Invalid credentials.")
)

// Middleware resolves HTTP Basic credentials into a shared.Principal.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireBasic rejects requests without valid credentials.
func (m Middleware) RequireBasic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username == "" {
			httpx.RespondError(w, m.Logger, errMissingAuth)
			return
		}
		user, err := m.Service.Authenticate(r.Context(), username, password)
		if err != nil {
			if m.Logger != nil && errors.Is(err, errInvalidCredentials) {
				m.Logger.Warn("basic auth rejected", slog.String("username", username))
			}
			httpx.RespondError(w, m.Logger, err)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), PrincipalFor(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
