package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sitebooks/backend/logger"
	"sitebooks/backend/middleware"
	"sitebooks/backend/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logger.WithComponent("http")
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeServiceError maps service errors onto HTTP statuses. Anything that is
// not a known sentinel gets fallback with msg and the cause appended.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback int, msg string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log := logger.WithUserID(middleware.GetUserIDFromContext(r))
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		middleware.WriteError(w, fallback, msg+": "+err.Error())
	}
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized: No user ID found")
		return "", false
	}
	return userID, true
}

// HealthCheck handles GET /api/health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
