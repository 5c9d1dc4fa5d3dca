package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Invoice is the local copy of a Xero invoice, unique per (UserID, XeroInvoiceID).
type Invoice struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	XeroInvoiceID string          `json:"xero_invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	ContactName   string          `json:"contact_name"`
	Reference     string          `json:"reference"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	Total         decimal.Decimal `json:"total"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	CurrencyCode  string          `json:"currency_code"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	XeroUpdatedAt *time.Time      `json:"xero_updated_at"`
	LineItems     []LineItem      `json:"line_items,omitempty"`
}

// LineItem belongs to an Invoice. DepartmentID and StageID are optional.
type LineItem struct {
	ID             string          `json:"id"`
	InvoiceID      string          `json:"invoice_id"`
	XeroLineItemID string          `json:"xero_line_item_id"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	LineAmount     decimal.Decimal `json:"line_amount"`
	AccountCode    string          `json:"account_code"`
	DepartmentID   *string         `json:"department_id"`
	StageID        *string         `json:"stage_id"`

	// Tracking option names carried from Xero, used to resolve DepartmentID/StageID.
	DepartmentOption string `json:"-"`
	StageOption      string `json:"-"`
}

// LineItemView is a line item joined with its invoice and stage, as listed by
// the department endpoints.
type LineItemView struct {
	ID            string          `json:"id"`
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceType   string          `json:"invoice_type"`
	InvoiceStatus string          `json:"invoice_status"`
	ContactName   string          `json:"contact_name"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	Description   string          `json:"description"`
	LineAmount    decimal.Decimal `json:"line_amount"`
	StageID       *string         `json:"stage_id"`
	StageName     *string         `json:"stage_name"`
}
