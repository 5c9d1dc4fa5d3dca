package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"sitebooks/backend/database"
	"sitebooks/backend/logger"
)

// refreshMu serializes rebuilds within the process. Across processes on
// PostgreSQL the table lock taken in the transaction does the same.
var refreshMu sync.Mutex

// RefreshDepartmentSummaries rebuilds department_invoice_summaries from the
// line items: one row per department, stage and invoice. It is the cache read
// by SummaryEntrySource and must be refreshed after anything that changes
// invoices or line-item assignments.
func RefreshDepartmentSummaries(ctx context.Context, db *sql.DB) error {
	log := logger.WithComponent("summaries")
	refreshMu.Lock()
	defer refreshMu.Unlock()
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if database.IsPostgres(db) {
		// Readers keep going; a second rebuild waits for this one to commit.
		if _, err := tx.ExecContext(ctx, "LOCK TABLE department_invoice_summaries IN EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("error locking department summaries: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM department_invoice_summaries"); err != nil {
		return fmt.Errorf("error clearing department summaries: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO department_invoice_summaries (department_id, stage_id, stage_name, invoice_id, invoice_type,
			status, line_total, line_count, activity_date)
		SELECT li.department_id, COALESCE(li.stage_id, ''), COALESCE(s.name, ''), i.id, i.type,
			i.status, SUM(li.line_amount), COUNT(*), MAX(COALESCE(i.invoice_date, i.xero_updated_at))
		FROM invoice_line_items li
		JOIN invoices i ON i.id = li.invoice_id
		LEFT JOIN stages s ON s.id = li.stage_id
		WHERE li.department_id IS NOT NULL AND i.status <> $1
		GROUP BY li.department_id, COALESCE(li.stage_id, ''), COALESCE(s.name, ''), i.id, i.type, i.status
	`, "DELETED")
	if err != nil {
		return fmt.Errorf("error rebuilding department summaries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	log.Debug().Int64("rows", rows).Dur("took", time.Since(start)).Msg("Department summaries refreshed")
	return nil
}
