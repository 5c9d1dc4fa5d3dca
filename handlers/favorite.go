package handlers

import (
	"database/sql"
	"net/http"

	"sitebooks/backend/middleware"
	"sitebooks/backend/services"
)

// FavoriteHandler manages a user's pinned departments.
type FavoriteHandler struct {
	db *sql.DB
}

func NewFavoriteHandler(db *sql.DB) *FavoriteHandler {
	return &FavoriteHandler{db: db}
}

type favoriteRequest struct {
	DepartmentID string `json:"department_id"`
}

// ListFavorites handles GET /api/favorites/departments
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	departments, err := services.ListFavoriteDepartments(r.Context(), h.db, userID)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to load favorites")
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

// AddFavorite handles POST /api/favorites/departments. Adding an existing
// favorite succeeds.
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil || req.DepartmentID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "department_id is required")
		return
	}

	if err := services.AddFavoriteDepartment(r.Context(), h.db, userID, req.DepartmentID); err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to add favorite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"department_id": req.DepartmentID})
}

// RemoveFavorite handles DELETE /api/favorites/departments. The department
// comes from ?department_id= or the JSON body.
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	departmentID := r.URL.Query().Get("department_id")
	if departmentID == "" && r.ContentLength > 0 {
		var req favoriteRequest
		if err := decodeJSON(r, &req); err == nil {
			departmentID = req.DepartmentID
		}
	}
	if departmentID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "department_id is required")
		return
	}

	if err := services.RemoveFavoriteDepartment(r.Context(), h.db, userID, departmentID); err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
