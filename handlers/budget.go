package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"sitebooks/backend/middleware"
	"sitebooks/backend/services"
)

// BudgetHandler serves per-stage budgets.
type BudgetHandler struct {
	db *sql.DB
}

func NewBudgetHandler(db *sql.DB) *BudgetHandler {
	return &BudgetHandler{db: db}
}

type budgetRequest struct {
	BudgetedAmount *decimal.Decimal `json:"budgeted_amount"`
}

// GetBudget handles GET /api/departments/{id}/stages/{stageId}/budget
func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := services.GetBudget(r.Context(), h.db, vars["id"], vars["stageId"])
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to load budget")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PutBudget handles PUT /api/departments/{id}/stages/{stageId}/budget. Only
// budgeted_amount is read from the body; actual cost is recomputed.
func (h *BudgetHandler) PutBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BudgetedAmount == nil {
		middleware.WriteError(w, http.StatusBadRequest, "budgeted_amount is required")
		return
	}
	if req.BudgetedAmount.IsNegative() {
		middleware.WriteError(w, http.StatusBadRequest, "budgeted_amount must be >= 0")
		return
	}

	vars := mux.Vars(r)
	b, err := services.PutBudget(r.Context(), h.db, vars["id"], vars["stageId"], *req.BudgetedAmount, userID)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to save budget")
		return
	}
	writeJSON(w, http.StatusOK, b)
}
