package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"sitebooks/backend/middleware"
	"sitebooks/backend/models"
	"sitebooks/backend/services"
)

// DepartmentHandler serves departments, their stages, line items and budgets.
type DepartmentHandler struct {
	db                 *sql.DB
	overheadsStageName string
}

func NewDepartmentHandler(db *sql.DB, overheadsStageName string) *DepartmentHandler {
	return &DepartmentHandler{db: db, overheadsStageName: overheadsStageName}
}

type departmentRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type stageRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type lineItemsResponse struct {
	Filter    models.StatusFilter   `json:"status_filter"`
	LineItems []models.LineItemView `json:"line_items"`
	Total     decimal.Decimal       `json:"total"`
}

type departmentDetailResponse struct {
	Department models.Department       `json:"department"`
	Filter     models.StatusFilter     `json:"status_filter"`
	LineItems  []models.LineItemView   `json:"line_items"`
	Summary    models.DepartmentTotals `json:"summary"`
}

func statusFilter(r *http.Request) models.StatusFilter {
	return models.ParseStatusFilter(r.URL.Query().Get("status"))
}

// ListDepartments handles GET /api/departments
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	summary, err := services.Summarize(r.Context(), h.db, services.SummaryOptions{
		Filter:             statusFilter(r),
		OverheadsStageName: h.overheadsStageName,
	})
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load departments")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CreateDepartment handles POST /api/departments
func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d, err := services.CreateDepartment(r.Context(), h.db, req.Name, req.Status)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to create department")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDepartment handles PUT /api/departments/{id}
func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d, err := services.UpdateDepartment(r.Context(), h.db, mux.Vars(r)["id"], req.Name, req.Status)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to update department")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetDepartment handles GET /api/departments/{id}
func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	filter := statusFilter(r)

	d, err := services.GetDepartment(r.Context(), h.db, id)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load department")
		return
	}

	items, _, err := services.DepartmentLineItems(r.Context(), h.db, id, filter, services.AllLineItems)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load line items")
		return
	}

	summary, err := services.Summarize(r.Context(), h.db, services.SummaryOptions{
		Filter:             filter,
		DepartmentID:       id,
		OverheadsStageName: h.overheadsStageName,
	})
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to summarize department")
		return
	}

	resp := departmentDetailResponse{Department: *d, Filter: filter, LineItems: items}
	if len(summary.Departments) > 0 {
		resp.Summary = summary.Departments[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetIncome handles GET /api/departments/{id}/income
func (h *DepartmentHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	h.listLineItems(w, r, services.IncomeLineItems)
}

// GetUnassignedBills handles GET /api/departments/{id}/unassigned-bills
func (h *DepartmentHandler) GetUnassignedBills(w http.ResponseWriter, r *http.Request) {
	h.listLineItems(w, r, services.UnassignedBillLineItems)
}

func (h *DepartmentHandler) listLineItems(w http.ResponseWriter, r *http.Request, kind services.LineItemKind) {
	id := mux.Vars(r)["id"]
	filter := statusFilter(r)

	if _, err := services.GetDepartment(r.Context(), h.db, id); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load department")
		return
	}

	items, total, err := services.DepartmentLineItems(r.Context(), h.db, id, filter, kind)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load line items")
		return
	}
	writeJSON(w, http.StatusOK, lineItemsResponse{Filter: filter, LineItems: items, Total: total})
}

// ListStages handles GET /api/departments/{id}/stages
func (h *DepartmentHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := services.GetDepartment(r.Context(), h.db, id); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load department")
		return
	}

	stages, err := services.ListStages(r.Context(), h.db, id)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, "Failed to load stages")
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

// CreateStage handles POST /api/departments/{id}/stages
func (h *DepartmentHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stage, err := services.CreateStage(r.Context(), h.db, mux.Vars(r)["id"], req.Name, req.SortOrder)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to create stage")
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}
