package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/auth"
)

// Authenticate returns middleware that verifies the bearer token and stores
// its claims on the request context. Requests without a valid token get 401.
func Authenticate(v auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				logger.Debug("token rejected", "error", err)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
