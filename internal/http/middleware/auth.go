package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/primadev/licensehub/internal/auth"
	"github.com/primadev/licensehub/internal/http/respond"
)

type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// RequireAdmin rejects requests without a bearer token with 401 and requests
// whose token does not verify with 403.
func RequireAdmin(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respond.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				slog.Warn("rejected admin token", "path", r.URL.Path, "error", err)
				respond.Error(w, http.StatusForbidden, "forbidden")

				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
