package middleware

import (
	"errors"
	"net/http"

	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/auth"
)

// TokenAuth verifies the bearer token and stores the caller identity in
// the request context. Missing, malformed and expired credentials all
// fail with 401 but carry distinct problem titles so clients can tell
// "log in" apart from "log in again".
func TokenAuth(manager *auth.TokenManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing bearer token", err, env)
				return
			}

			claims, err := manager.Verify(token)
			if err != nil {
				title := "Invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					title = "Token expired"
				}
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, title, err, env)
				return
			}

			identity, err := auth.IdentityFromClaims(claims)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
		})
	}
}
