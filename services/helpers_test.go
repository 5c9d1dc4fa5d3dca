package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"sitebooks/backend/database"
	"sitebooks/backend/models"
	"sitebooks/backend/xero"
)

const testUserID = "firebase-admin-1"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustDepartment(t *testing.T, db *sql.DB, name string) *models.Department {
	t.Helper()
	d, err := CreateDepartment(context.Background(), db, name, "")
	require.NoError(t, err)
	return d
}

func mustStage(t *testing.T, db *sql.DB, departmentID, name string, order int) *models.Stage {
	t.Helper()
	s, err := CreateStage(context.Background(), db, departmentID, name, order)
	require.NoError(t, err)
	return s
}

func line(id, amount, department, stage string) xero.LineItem {
	li := xero.LineItem{
		LineItemID:  id,
		Description: "line " + id,
		Quantity:    decimal.NewFromInt(1),
		UnitAmount:  decimal.RequireFromString(amount),
		LineAmount:  decimal.RequireFromString(amount),
	}
	if department != "" {
		li.Tracking = append(li.Tracking, xero.TrackingCategory{Name: "Department", Option: department})
	}
	if stage != "" {
		li.Tracking = append(li.Tracking, xero.TrackingCategory{Name: "Stage", Option: stage})
	}
	return li
}

func invoice(id, typ, status, date string, lines ...xero.LineItem) xero.Invoice {
	return xero.Invoice{
		InvoiceID:     id,
		InvoiceNumber: "INV-" + id,
		Type:          typ,
		Status:        status,
		Contact:       xero.Contact{Name: "Contact " + id},
		DateString:    date,
		LineItems:     lines,
	}
}

func mustUpsert(t *testing.T, db *sql.DB, invoices ...xero.Invoice) SyncStats {
	t.Helper()
	ctx := context.Background()
	mapper, err := LoadTrackingMapper(ctx, db, "Department", "Stage")
	require.NoError(t, err)
	stats, err := UpsertInvoices(ctx, db, testUserID, invoices, mapper)
	require.NoError(t, err)
	require.NoError(t, RefreshDepartmentSummaries(ctx, db))
	return stats
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
