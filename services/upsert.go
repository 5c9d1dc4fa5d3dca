package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitebooks/backend/database"
	"sitebooks/backend/logger"
	"sitebooks/backend/models"
	"sitebooks/backend/xero"
)

// SyncStats counts what one sync run did.
type SyncStats struct {
	Fetched   int `json:"fetched"`
	Upserted  int `json:"upserted"`
	LineItems int `json:"line_items"`
	Skipped   int `json:"skipped"`
}

// MapInvoice converts a Xero invoice to the local shape. Unparseable dates
// become nil. Line item tracking is resolved through mapper, which may be nil.
func MapInvoice(userID string, inv xero.Invoice, mapper *TrackingMapper) models.Invoice {
	out := models.Invoice{
		UserID:        userID,
		XeroInvoiceID: inv.InvoiceID,
		InvoiceNumber: inv.InvoiceNumber,
		Type:          inv.Type,
		Status:        inv.Status,
		ContactName:   inv.Contact.Name,
		Reference:     inv.Reference,
		SubTotal:      inv.SubTotal,
		TotalTax:      inv.TotalTax,
		Total:         inv.Total,
		AmountDue:     inv.AmountDue,
		AmountPaid:    inv.AmountPaid,
		CurrencyCode:  inv.CurrencyCode,
		InvoiceDate:   xero.FirstDate(inv.DateString, inv.Date),
		DueDate:       xero.FirstDate(inv.DueDateString, inv.DueDate),
		XeroUpdatedAt: xero.ParseDate(inv.UpdatedDateUTC),
	}
	for _, li := range inv.LineItems {
		deptOpt, stageOpt := mapper.Options(li)
		deptID, stageID := mapper.Resolve(deptOpt, stageOpt)
		out.LineItems = append(out.LineItems, models.LineItem{
			XeroLineItemID:   li.LineItemID,
			Description:      li.Description,
			Quantity:         li.Quantity,
			UnitAmount:       li.UnitAmount,
			LineAmount:       li.LineAmount,
			AccountCode:      li.AccountCode,
			DepartmentID:     deptID,
			StageID:          stageID,
			DepartmentOption: deptOpt,
			StageOption:      stageOpt,
		})
	}
	return out
}

// UpsertInvoices writes invoices and their line items in one transaction.
// Invoices are keyed on (user_id, xero_invoice_id) and overwritten field by
// field. Line items are keyed on (invoice_id, xero_line_item_id); tracking
// resolved by mapper wins, otherwise any existing assignment is kept.
func UpsertInvoices(ctx context.Context, db *sql.DB, userID string, invoices []xero.Invoice, mapper *TrackingMapper) (SyncStats, error) {
	log := logger.WithComponent("upsert")
	stats := SyncStats{Fetched: len(invoices)}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, raw := range invoices {
		if !xero.Syncable(raw) {
			log.Debug().Str("invoice", raw.InvoiceID).Str("type", raw.Type).Str("status", raw.Status).
				Msg("Skipping invoice")
			stats.Skipped++
			continue
		}

		inv := MapInvoice(userID, raw, mapper)
		localID, err := upsertInvoice(ctx, tx, inv, now)
		if err != nil {
			return stats, fmt.Errorf("error upserting invoice %s: %w", raw.InvoiceID, err)
		}
		stats.Upserted++

		n, err := upsertLineItems(ctx, tx, localID, inv.LineItems, now)
		if err != nil {
			return stats, fmt.Errorf("error upserting line items for invoice %s: %w", raw.InvoiceID, err)
		}
		stats.LineItems += n
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("error committing invoices: %w", err)
	}

	log.Info().
		Int("upserted", stats.Upserted).
		Int("line_items", stats.LineItems).
		Int("skipped", stats.Skipped).
		Msg("Invoices upserted")
	return stats, nil
}

func upsertInvoice(ctx context.Context, tx *sql.Tx, inv models.Invoice, now time.Time) (string, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (id, user_id, xero_invoice_id, invoice_number, type, status, contact_name, reference,
			sub_total, total_tax, total, amount_due, amount_paid, currency_code,
			invoice_date, due_date, xero_updated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (user_id, xero_invoice_id) DO UPDATE SET
			invoice_number = excluded.invoice_number,
			type = excluded.type,
			status = excluded.status,
			contact_name = excluded.contact_name,
			reference = excluded.reference,
			sub_total = excluded.sub_total,
			total_tax = excluded.total_tax,
			total = excluded.total,
			amount_due = excluded.amount_due,
			amount_paid = excluded.amount_paid,
			currency_code = excluded.currency_code,
			invoice_date = excluded.invoice_date,
			due_date = excluded.due_date,
			xero_updated_at = excluded.xero_updated_at,
			updated_at = excluded.updated_at
	`,
		uuid.NewString(), inv.UserID, inv.XeroInvoiceID, inv.InvoiceNumber, inv.Type, inv.Status, inv.ContactName, inv.Reference,
		inv.SubTotal, inv.TotalTax, inv.Total, inv.AmountDue, inv.AmountPaid, inv.CurrencyCode,
		nullTime(inv.InvoiceDate), nullTime(inv.DueDate), nullTime(inv.XeroUpdatedAt), now, now,
	)
	if err != nil {
		return "", err
	}

	var id string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM invoices WHERE user_id = $1 AND xero_invoice_id = $2",
		inv.UserID, inv.XeroInvoiceID,
	).Scan(&id)
	return id, err
}

func upsertLineItems(ctx context.Context, tx *sql.Tx, invoiceID string, lines []models.LineItem, now time.Time) (int, error) {
	var seen []interface{}
	for _, li := range lines {
		if li.XeroLineItemID == "" {
			continue
		}

		// A tracked department change drops a stage that belonged to the old one.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_line_items (id, invoice_id, xero_line_item_id, description, quantity, unit_amount,
				line_amount, account_code, department_id, stage_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (invoice_id, xero_line_item_id) DO UPDATE SET
				description = excluded.description,
				quantity = excluded.quantity,
				unit_amount = excluded.unit_amount,
				line_amount = excluded.line_amount,
				account_code = excluded.account_code,
				department_id = COALESCE(excluded.department_id, invoice_line_items.department_id),
				stage_id = CASE
					WHEN excluded.department_id IS NOT NULL
						AND excluded.department_id <> COALESCE(invoice_line_items.department_id, '')
					THEN excluded.stage_id
					ELSE COALESCE(excluded.stage_id, invoice_line_items.stage_id)
				END,
				updated_at = excluded.updated_at
		`,
			uuid.NewString(), invoiceID, li.XeroLineItemID, li.Description, li.Quantity, li.UnitAmount,
			li.LineAmount, li.AccountCode, nullString(li.DepartmentID), nullString(li.StageID), now, now,
		)
		if err != nil {
			return 0, err
		}
		seen = append(seen, li.XeroLineItemID)
	}

	// An invoice that arrived without lines tells us nothing about its lines.
	if len(seen) == 0 {
		return 0, nil
	}

	args := append([]interface{}{invoiceID}, seen...)
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM invoice_line_items
		WHERE invoice_id = $1 AND xero_line_item_id NOT IN (%s)
	`, database.Placeholders(2, len(seen))), args...)
	if err != nil {
		return 0, fmt.Errorf("error pruning line items: %w", err)
	}
	return len(seen), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
