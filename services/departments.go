package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sitebooks/backend/database"
	"sitebooks/backend/models"
)

// ListDepartments returns every department ordered by name.
func ListDepartments(ctx context.Context, db Querier) ([]models.Department, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM departments ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing departments: %w", err)
	}
	defer rows.Close()

	departments := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// GetDepartment loads one department or returns ErrNotFound.
func GetDepartment(ctx context.Context, db Querier, id string) (*models.Department, error) {
	var d models.Department
	err := db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM departments WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading department: %w", err)
	}
	return &d, nil
}

// CreateDepartment inserts a department. Status defaults to active.
func CreateDepartment(ctx context.Context, db Querier, name, status string) (*models.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if status == "" {
		status = models.DepartmentActive
	}
	if !models.IsValidDepartmentStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO departments (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, name, status, now, now)
	if err != nil {
		return nil, fmt.Errorf("error creating department: %w", err)
	}
	return GetDepartment(ctx, db, id)
}

// UpdateDepartment renames a department and/or changes its status. Empty
// arguments leave the field unchanged.
func UpdateDepartment(ctx context.Context, db Querier, id, name, status string) (*models.Department, error) {
	current, err := GetDepartment(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name == "" {
		name = current.Name
	}
	if status == "" {
		status = current.Status
	}
	if !models.IsValidDepartmentStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	_, err = db.ExecContext(ctx, `
		UPDATE departments SET name = $1, status = $2, updated_at = $3 WHERE id = $4
	`, name, status, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("error updating department: %w", err)
	}
	return GetDepartment(ctx, db, id)
}

// ListStages returns the stages of a department in sort order. An empty
// departmentID lists every stage.
func ListStages(ctx context.Context, db Querier, departmentID string) ([]models.Stage, error) {
	query := "SELECT id, department_id, name, sort_order, created_at FROM stages"
	var args []interface{}
	if departmentID != "" {
		query += " WHERE department_id = $1"
		args = append(args, departmentID)
	}
	query += " ORDER BY department_id, sort_order, name"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing stages: %w", err)
	}
	defer rows.Close()

	stages := []models.Stage{}
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.DepartmentID, &s.Name, &s.SortOrder, &s.CreatedAt); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// GetStage loads a stage, checking it belongs to the department.
func GetStage(ctx context.Context, db Querier, departmentID, stageID string) (*models.Stage, error) {
	var s models.Stage
	err := db.QueryRowContext(ctx, `
		SELECT id, department_id, name, sort_order, created_at
		FROM stages WHERE id = $1 AND department_id = $2
	`, stageID, departmentID).Scan(&s.ID, &s.DepartmentID, &s.Name, &s.SortOrder, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading stage: %w", err)
	}
	return &s, nil
}

// CreateStage adds a stage to a department.
func CreateStage(ctx context.Context, db Querier, departmentID, name string, sortOrder int) (*models.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := GetDepartment(ctx, db, departmentID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx, `
		INSERT INTO stages (id, department_id, name, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, departmentID, name, sortOrder, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("error creating stage: %w", err)
	}
	return GetStage(ctx, db, departmentID, id)
}

// LineItemKind selects a slice of a department's line items.
type LineItemKind int

const (
	AllLineItems LineItemKind = iota
	IncomeLineItems
	UnassignedBillLineItems
)

// DepartmentLineItems lists a department's line items for invoices passing the
// filter, newest invoice first, together with their total.
func DepartmentLineItems(ctx context.Context, db Querier, departmentID string, filter models.StatusFilter, kind LineItemKind) ([]models.LineItemView, decimal.Decimal, error) {
	args := []interface{}{departmentID}
	for _, st := range filter.Statuses() {
		args = append(args, st)
	}

	query := `
		SELECT li.id, i.id, i.invoice_number, i.type, i.status, i.contact_name, i.invoice_date,
			li.description, li.line_amount, li.stage_id, s.name
		FROM invoice_line_items li
		JOIN invoices i ON i.id = li.invoice_id
		LEFT JOIN stages s ON s.id = li.stage_id
		WHERE li.department_id = $1 AND i.status IN (` + database.Placeholders(2, len(filter.Statuses())) + `)`

	switch kind {
	case IncomeLineItems:
		args = append(args, models.InvoiceTypeReceivable)
		query += fmt.Sprintf(" AND i.type = $%d", len(args))
	case UnassignedBillLineItems:
		args = append(args, models.InvoiceTypePayable)
		query += fmt.Sprintf(" AND i.type = $%d AND li.stage_id IS NULL", len(args))
	}
	query += " ORDER BY i.invoice_date DESC, i.invoice_number, li.xero_line_item_id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("error listing line items: %w", err)
	}
	defer rows.Close()

	items := []models.LineItemView{}
	total := decimal.Zero
	for rows.Next() {
		var (
			v                  models.LineItemView
			invoiceDate        sql.NullTime
			stageID, stageName sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.InvoiceID, &v.InvoiceNumber, &v.InvoiceType, &v.InvoiceStatus, &v.ContactName,
			&invoiceDate, &v.Description, &v.LineAmount, &stageID, &stageName); err != nil {
			return nil, decimal.Zero, err
		}
		v.LineAmount = v.LineAmount.Round(2)
		v.InvoiceDate = timePtr(invoiceDate)
		v.StageID = stringPtr(stageID)
		v.StageName = stringPtr(stageName)
		total = total.Add(v.LineAmount)
		items = append(items, v)
	}
	return items, total, rows.Err()
}

// AssignLineItem sets the department and stage of a line item by hand. A
// stage must belong to the department. Callers refresh the summary cache.
func AssignLineItem(ctx context.Context, db Querier, lineItemID string, departmentID, stageID *string) error {
	if departmentID == nil && stageID != nil {
		return fmt.Errorf("%w: a stage needs a department", ErrValidation)
	}
	if departmentID != nil {
		if _, err := GetDepartment(ctx, db, *departmentID); err != nil {
			return err
		}
	}
	if stageID != nil {
		if _, err := GetStage(ctx, db, *departmentID, *stageID); errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: stage does not belong to department", ErrValidation)
		} else if err != nil {
			return err
		}
	}

	res, err := db.ExecContext(ctx, `
		UPDATE invoice_line_items SET department_id = $1, stage_id = $2, updated_at = $3 WHERE id = $4
	`, nullString(departmentID), nullString(stageID), time.Now().UTC(), lineItemID)
	if err != nil {
		return fmt.Errorf("error assigning line item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
