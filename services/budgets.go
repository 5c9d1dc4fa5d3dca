package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sitebooks/backend/database"
	"sitebooks/backend/models"
)

// StageActualCost sums the payable line items assigned to a stage under the
// default status filter.
func StageActualCost(ctx context.Context, db Querier, departmentID, stageID string) (decimal.Decimal, error) {
	statuses := models.FilterPaidAuthorized.Statuses()
	args := []interface{}{departmentID, stageID, models.InvoiceTypePayable}
	for _, st := range statuses {
		args = append(args, st)
	}

	var actual decimal.Decimal
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(li.line_amount), 0)
		FROM invoice_line_items li
		JOIN invoices i ON i.id = li.invoice_id
		WHERE li.department_id = $1 AND li.stage_id = $2 AND i.type = $3
			AND i.status IN (`+database.Placeholders(4, len(statuses))+`)
	`, args...).Scan(&actual)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error computing actual cost: %w", err)
	}
	return actual.Round(2), nil
}

// GetBudget returns the budget triple for a stage. The actual cost is always
// recomputed; a stage without a stored budget reports zero budgeted.
func GetBudget(ctx context.Context, db Querier, departmentID, stageID string) (*models.BudgetSummary, error) {
	if _, err := GetStage(ctx, db, departmentID, stageID); err != nil {
		return nil, err
	}

	b := &models.BudgetSummary{DepartmentID: departmentID, StageID: stageID}
	var (
		updatedBy string
		updatedAt time.Time
	)
	err := db.QueryRowContext(ctx, `
		SELECT budgeted_amount, updated_by, updated_at
		FROM budget_summaries WHERE department_id = $1 AND stage_id = $2
	`, departmentID, stageID).Scan(&b.BudgetedAmount, &updatedBy, &updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		b.BudgetedAmount = decimal.Zero
	case err != nil:
		return nil, fmt.Errorf("error loading budget: %w", err)
	default:
		b.UpdatedBy = updatedBy
		b.UpdatedAt = &updatedAt
	}

	if b.ActualCost, err = StageActualCost(ctx, db, departmentID, stageID); err != nil {
		return nil, err
	}
	b.BudgetedAmount = b.BudgetedAmount.Round(2)
	b.Remaining = b.BudgetedAmount.Sub(b.ActualCost)
	return b, nil
}

// PutBudget stores the budgeted amount for a stage. Actual cost and remaining
// are derived from line items, never taken from the caller, so repeating the
// call with the same amount stores the same triple.
func PutBudget(ctx context.Context, db Querier, departmentID, stageID string, budgeted decimal.Decimal, userID string) (*models.BudgetSummary, error) {
	if budgeted.IsNegative() {
		return nil, fmt.Errorf("%w: budgeted_amount must be >= 0", ErrValidation)
	}
	if _, err := GetStage(ctx, db, departmentID, stageID); err != nil {
		return nil, err
	}

	actual, err := StageActualCost(ctx, db, departmentID, stageID)
	if err != nil {
		return nil, err
	}
	budgeted = budgeted.Round(2)
	remaining := budgeted.Sub(actual)

	_, err = db.ExecContext(ctx, `
		INSERT INTO budget_summaries (department_id, stage_id, budgeted_amount, actual_cost, remaining, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (department_id, stage_id) DO UPDATE SET
			budgeted_amount = excluded.budgeted_amount,
			actual_cost = excluded.actual_cost,
			remaining = excluded.remaining,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`, departmentID, stageID, budgeted, actual, remaining, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("error saving budget: %w", err)
	}

	return GetBudget(ctx, db, departmentID, stageID)
}
