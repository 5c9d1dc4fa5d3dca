package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// StatusFilter selects which invoice statuses count toward a summary.
type StatusFilter string

const (
	FilterPaid           StatusFilter = "paid"
	FilterPaidAuthorized StatusFilter = "paid_authorized"
)

// ParseStatusFilter maps the ?status= query value to a filter. Anything other
// than "paid" falls back to the default.
func ParseStatusFilter(s string) StatusFilter {
	if s == string(FilterPaid) {
		return FilterPaid
	}
	return FilterPaidAuthorized
}

// Statuses returns the invoice statuses included by the filter.
func (f StatusFilter) Statuses() []string {
	if f == FilterPaid {
		return []string{InvoiceStatusPaid}
	}
	return []string{InvoiceStatusPaid, InvoiceStatusAuthorised}
}

// Includes reports whether an invoice status passes the filter.
func (f StatusFilter) Includes(status string) bool {
	for _, s := range f.Statuses() {
		if s == status {
			return true
		}
	}
	return false
}

// LedgerEntry is one unit of the aggregation stream: either a single line
// item (LineCount 1) or a pre-summed group of line items from the same
// invoice, department and stage.
type LedgerEntry struct {
	DepartmentID string
	StageID      string
	StageName    string
	InvoiceID    string
	InvoiceType  string
	Status       string
	Amount       decimal.Decimal
	LineCount    int
	ActivityDate *time.Time
}

var (
	errEntryDepartment = errors.New("ledger entry: department id is required")
	errEntryInvoice    = errors.New("ledger entry: invoice id is required")
	errEntryType       = errors.New("ledger entry: invoice type must be ACCREC or ACCPAY")
	errEntryCount      = errors.New("ledger entry: line count must be positive")
)

// NewLedgerEntry validates the required fields of an entry.
func NewLedgerEntry(e LedgerEntry) (LedgerEntry, error) {
	if e.DepartmentID == "" {
		return LedgerEntry{}, errEntryDepartment
	}
	if e.InvoiceID == "" {
		return LedgerEntry{}, errEntryInvoice
	}
	if e.InvoiceType != InvoiceTypeReceivable && e.InvoiceType != InvoiceTypePayable {
		return LedgerEntry{}, errEntryType
	}
	if e.LineCount <= 0 {
		return LedgerEntry{}, errEntryCount
	}
	return e, nil
}

// StageTotals is the expense breakdown for one stage.
type StageTotals struct {
	StageID        string          `json:"stage_id"`
	StageName      string          `json:"stage_name"`
	Spent          decimal.Decimal `json:"spent"`
	ItemCount      int             `json:"item_count"`
	AverageAmount  decimal.Decimal `json:"average_amount"`
	LastActivity   *time.Time      `json:"last_activity"`
	BudgetedAmount decimal.Decimal `json:"budgeted_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// DepartmentTotals is the income/expense summary for one department.
type DepartmentTotals struct {
	DepartmentID           string          `json:"department_id"`
	Name                   string          `json:"name"`
	Status                 string          `json:"status"`
	Income                 decimal.Decimal `json:"income"`
	Expenses               decimal.Decimal `json:"expenses"`
	NetProfit              decimal.Decimal `json:"net_profit"`
	ReceivableInvoiceCount int             `json:"receivable_invoice_count"`
	PayableInvoiceCount    int             `json:"payable_invoice_count"`
	LastActivity           *time.Time      `json:"last_activity"`
	UnassignedBills        decimal.Decimal `json:"unassigned_bills"`
	Overheads              decimal.Decimal `json:"overheads"`
	Stages                 []StageTotals   `json:"stages"`
}

// OverallTotals sums every department.
type OverallTotals struct {
	Income                 decimal.Decimal `json:"income"`
	Expenses               decimal.Decimal `json:"expenses"`
	NetProfit              decimal.Decimal `json:"net_profit"`
	ReceivableInvoiceCount int             `json:"receivable_invoice_count"`
	PayableInvoiceCount    int             `json:"payable_invoice_count"`
	UnassignedBills        decimal.Decimal `json:"unassigned_bills"`
	Overheads              decimal.Decimal `json:"overheads"`
}

// Summary is the aggregator output.
type Summary struct {
	Filter      StatusFilter       `json:"status_filter"`
	Departments []DepartmentTotals `json:"departments"`
	Totals      OverallTotals      `json:"totals"`
}
