package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireCronSecret only lets through requests carrying
// "Authorization: Bearer <secret>". An empty secret rejects everything.
func RequireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := extractToken(r.Header.Get("Authorization"))
			if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
