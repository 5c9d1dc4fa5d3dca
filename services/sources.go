package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sitebooks/backend/database"
	"sitebooks/backend/logger"
	"sitebooks/backend/models"
)

// EntryQuery narrows what an EntrySource yields.
type EntryQuery struct {
	Filter       models.StatusFilter
	DepartmentID string
}

// EntrySource streams ledger entries for aggregation. Implementations must
// only yield entries whose status passes q.Filter and that belong to a
// department. yield must not touch the database.
type EntrySource interface {
	Entries(ctx context.Context, q EntryQuery, yield func(models.LedgerEntry) error) error
}

// RawEntrySource reads one entry per line item.
type RawEntrySource struct {
	DB Querier
}

func (s RawEntrySource) Entries(ctx context.Context, q EntryQuery, yield func(models.LedgerEntry) error) error {
	statuses := q.Filter.Statuses()
	args := make([]interface{}, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, st)
	}

	query := `
		SELECT li.department_id, COALESCE(li.stage_id, ''), COALESCE(s.name, ''), i.id, i.type, i.status,
			li.line_amount, i.invoice_date, i.xero_updated_at
		FROM invoice_line_items li
		JOIN invoices i ON i.id = li.invoice_id
		LEFT JOIN stages s ON s.id = li.stage_id
		WHERE li.department_id IS NOT NULL AND i.status IN (` + database.Placeholders(1, len(statuses)) + `)`
	if q.DepartmentID != "" {
		args = append(args, q.DepartmentID)
		query += fmt.Sprintf(" AND li.department_id = $%d", len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error querying line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                    models.LedgerEntry
			invoiceDate, updated sql.NullTime
		)
		if err := rows.Scan(&e.DepartmentID, &e.StageID, &e.StageName, &e.InvoiceID, &e.InvoiceType, &e.Status,
			&e.Amount, &invoiceDate, &updated); err != nil {
			return err
		}
		e.LineCount = 1
		e.ActivityDate = timePtr(invoiceDate)
		if e.ActivityDate == nil {
			e.ActivityDate = timePtr(updated)
		}
		if err := emit(e, yield); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SummaryEntrySource reads the pre-summed department_invoice_summaries rows.
type SummaryEntrySource struct {
	DB Querier
}

func (s SummaryEntrySource) Entries(ctx context.Context, q EntryQuery, yield func(models.LedgerEntry) error) error {
	statuses := q.Filter.Statuses()
	args := make([]interface{}, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, st)
	}

	query := `
		SELECT department_id, stage_id, stage_name, invoice_id, invoice_type, status,
			line_total, line_count, activity_date
		FROM department_invoice_summaries
		WHERE status IN (` + database.Placeholders(1, len(statuses)) + `)`
	if q.DepartmentID != "" {
		args = append(args, q.DepartmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error querying department summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e        models.LedgerEntry
			activity sql.NullTime
		)
		if err := rows.Scan(&e.DepartmentID, &e.StageID, &e.StageName, &e.InvoiceID, &e.InvoiceType, &e.Status,
			&e.Amount, &e.LineCount, &activity); err != nil {
			return err
		}
		e.ActivityDate = timePtr(activity)
		if err := emit(e, yield); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SourceFor picks the entry source for a filter: the summary cache serves the
// default filter, raw line items serve the rest.
func SourceFor(db Querier, filter models.StatusFilter) EntrySource {
	if filter == models.FilterPaidAuthorized {
		return SummaryEntrySource{DB: db}
	}
	return RawEntrySource{DB: db}
}

func emit(e models.LedgerEntry, yield func(models.LedgerEntry) error) error {
	e.Amount = e.Amount.Round(2)
	e.InvoiceType = strings.ToUpper(e.InvoiceType)
	valid, err := models.NewLedgerEntry(e)
	if err != nil {
		// A bad row is dropped from the fold, not fatal to it.
		log := logger.WithComponent("summaries")
		log.Warn().Err(err).Str("invoice", e.InvoiceID).Msg("Skipping invalid ledger entry")
		return nil
	}
	return yield(valid)
}
