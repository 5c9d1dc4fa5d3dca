package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"sitebooks/backend/database"
	"sitebooks/backend/middleware"
	"sitebooks/backend/models"
	"sitebooks/backend/services"
	"sitebooks/backend/xero"
)

// TestUserID is the caller used by authenticated requests in these tests.
const TestUserID = "test-user-id"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newRequest builds an authenticated request with optional JSON body and
// gorilla/mux path variables.
func newRequest(method, url string, body interface{}, vars map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		buf, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewBuffer(buf))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return middleware.WithUserID(req, TestUserID)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func mustDepartment(t *testing.T, db *sql.DB, name string) *models.Department {
	t.Helper()
	d, err := services.CreateDepartment(context.Background(), db, name, "")
	require.NoError(t, err)
	return d
}

func mustStage(t *testing.T, db *sql.DB, departmentID, name string, order int) *models.Stage {
	t.Helper()
	s, err := services.CreateStage(context.Background(), db, departmentID, name, order)
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

func invoice(id, typ, status string, lines ...xero.LineItem) xero.Invoice {
	return xero.Invoice{
		InvoiceID:     id,
		InvoiceNumber: "INV-" + id,
		Type:          typ,
		Status:        status,
		Contact:       xero.Contact{Name: "Contact " + id},
		DateString:    "2026-03-01T00:00:00",
		LineItems:     lines,
	}
}

func mustUpsert(t *testing.T, db *sql.DB, invoices ...xero.Invoice) {
	t.Helper()
	ctx := context.Background()
	mapper, err := services.LoadTrackingMapper(ctx, db, "Department", "Stage")
	require.NoError(t, err)
	_, err = services.UpsertInvoices(ctx, db, TestUserID, invoices, mapper)
	require.NoError(t, err)
	require.NoError(t, services.RefreshDepartmentSummaries(ctx, db))
}

func lineItemID(t *testing.T, db *sql.DB, xeroLineItemID string) string {
	t.Helper()
	var id string
	require.NoError(t, db.QueryRow("SELECT id FROM invoice_line_items WHERE xero_line_item_id = $1", xeroLineItemID).Scan(&id))
	return id
}
