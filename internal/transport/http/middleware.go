package httptransport

import (
	"context"
	"net/http"
	"strings"

	"taxgate/internal/identity/models"
	"taxgate/pkg/apperrors"
)

// Authenticator validates a bearer token and returns the current principal.
// Validation is a fresh read: deactivation and role changes take effect on
// the next request, not at token expiry.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}

type ctxKey int

const principalKey ctxKey = 0

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated principal in the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, apperrors.New(apperrors.CodeInvalidSession, "missing bearer token"))
				return
			}
			p, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		})
	}
}

// PrincipalFrom returns the authenticated principal, or nil outside an
// authenticated route.
func PrincipalFrom(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalKey).(*models.Principal)
	return p
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
