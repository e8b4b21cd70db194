package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smartpantry/smartpantry/internal/auth"
)

// RequireAuth validates the Authorization bearer token and populates the
// caller's Identity in the request context.
func RequireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "authorization header missing or malformed")
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			id := auth.Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Name:   claims.Name,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
