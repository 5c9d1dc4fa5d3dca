package middleware

import (
	"database/sql"
	"net/http"

	"sitebooks/backend/logger"
	"sitebooks/backend/services"
)

// RequireAdmin is a middleware that ensures the user holds the admin role.
// The role is read from the users table on every request.
func RequireAdmin(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserIDFromContext(r)
			if userID == "" {
				WriteError(w, http.StatusUnauthorized, "Unauthorized: No user ID found")
				return
			}

			isAdmin, err := services.IsAdmin(r.Context(), db, userID)
			if err != nil {
				log := logger.WithUserID(userID)
				log.Error().Err(err).Msg("Failed to get user role")
				WriteError(w, http.StatusInternalServerError, "Failed to get user role: "+err.Error())
				return
			}
			if !isAdmin {
				WriteError(w, http.StatusForbidden, "Forbidden: Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
