package handlers

import (
	"database/sql"
	"net/http"

	"sitebooks/backend/middleware"
	"sitebooks/backend/models"
	"sitebooks/backend/services"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	db          *sql.DB
	adminEmails []string
}

func NewUserHandler(db *sql.DB, adminEmails []string) *UserHandler {
	return &UserHandler{db: db, adminEmails: adminEmails}
}

type syncUserRequest struct {
	Name string `json:"name"`
}

// SyncUser handles POST /api/users/sync. Identity comes from the verified
// token; the body may only supply a display name the token lacks.
func (h *UserHandler) SyncUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u := models.User{
		ID:    userID,
		Email: middleware.GetUserEmailFromContext(r),
		Name:  middleware.GetUserNameFromContext(r),
	}
	if r.ContentLength > 0 {
		var req syncUserRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if u.Name == "" {
			u.Name = req.Name
		}
	}

	user, err := services.UpsertUser(r.Context(), h.db, u, h.adminEmails)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to sync user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetMe handles GET /api/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := services.GetUser(r.Context(), h.db, userID)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
