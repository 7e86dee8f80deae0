package gateway

import (
	"context"
	"net/http"
	"time"

	"attendtrack/backend/internal/gateway/util"
	"attendtrack/backend/internal/identity"
)

// AuthMiddleware validates the bearer token and injects the principal.
func AuthMiddleware(verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			principal, err := verifier.Verify(ctx, tokenStr)
			if err != nil {
				util.HandleServiceError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}
