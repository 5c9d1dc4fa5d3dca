package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"sitebooks/backend/logger"
	"sitebooks/backend/middleware"
	"sitebooks/backend/services"
)

// LineItemHandler handles manual department/stage assignment.
type LineItemHandler struct {
	db *sql.DB
}

func NewLineItemHandler(db *sql.DB) *LineItemHandler {
	return &LineItemHandler{db: db}
}

type assignmentRequest struct {
	DepartmentID *string `json:"department_id"`
	StageID      *string `json:"stage_id"`
}

type assignmentResponse struct {
	ID           string  `json:"id"`
	DepartmentID *string `json:"department_id"`
	StageID      *string `json:"stage_id"`
}

// AssignLineItem handles PUT /api/line-items/{id}/assignment. A null
// department_id clears the assignment.
func (h *LineItemHandler) AssignLineItem(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DepartmentID != nil && *req.DepartmentID == "" {
		req.DepartmentID = nil
	}
	if req.StageID != nil && *req.StageID == "" {
		req.StageID = nil
	}

	id := mux.Vars(r)["id"]
	if err := services.AssignLineItem(r.Context(), h.db, id, req.DepartmentID, req.StageID); err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to assign line item")
		return
	}

	if err := services.RefreshDepartmentSummaries(r.Context(), h.db); err != nil {
		// The assignment itself is committed; raw reads stay correct.
		log := logger.WithComponent("summaries")
		log.Error().Err(err).Str("line_item", id).Msg("Failed to refresh department summaries")
	}

	writeJSON(w, http.StatusOK, assignmentResponse{ID: id, DepartmentID: req.DepartmentID, StageID: req.StageID})
}
