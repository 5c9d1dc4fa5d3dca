package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetSummary is the budget triple for one department stage.
type BudgetSummary struct {
	DepartmentID   string          `json:"department_id"`
	StageID        string          `json:"stage_id"`
	BudgetedAmount decimal.Decimal `json:"budgeted_amount"`
	ActualCost     decimal.Decimal `json:"actual_cost"`
	Remaining      decimal.Decimal `json:"remaining"`
	UpdatedBy      string          `json:"updated_by,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}
