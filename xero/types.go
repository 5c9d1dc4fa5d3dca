package xero

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the subset of the Xero Accounting API invoice payload we keep.
type Invoice struct {
	InvoiceID      string          `json:"InvoiceID"`
	InvoiceNumber  string          `json:"InvoiceNumber"`
	Type           string          `json:"Type"`
	Status         string          `json:"Status"`
	Reference      string          `json:"Reference"`
	Contact        Contact         `json:"Contact"`
	Date           string          `json:"Date"`
	DateString     string          `json:"DateString"`
	DueDate        string          `json:"DueDate"`
	DueDateString  string          `json:"DueDateString"`
	UpdatedDateUTC string          `json:"UpdatedDateUTC"`
	CurrencyCode   string          `json:"CurrencyCode"`
	SubTotal       decimal.Decimal `json:"SubTotal"`
	TotalTax       decimal.Decimal `json:"TotalTax"`
	Total          decimal.Decimal `json:"Total"`
	AmountDue      decimal.Decimal `json:"AmountDue"`
	AmountPaid     decimal.Decimal `json:"AmountPaid"`
	LineItems      []LineItem      `json:"LineItems"`
}

type Contact struct {
	ContactID string `json:"ContactID"`
	Name      string `json:"Name"`
}

type LineItem struct {
	LineItemID  string             `json:"LineItemID"`
	Description string             `json:"Description"`
	Quantity    decimal.Decimal    `json:"Quantity"`
	UnitAmount  decimal.Decimal    `json:"UnitAmount"`
	LineAmount  decimal.Decimal    `json:"LineAmount"`
	AccountCode string             `json:"AccountCode"`
	Tracking    []TrackingCategory `json:"Tracking"`
}

// TrackingCategory is a tracking option applied to a line item, e.g.
// Name "Department", Option "Smith St Renovation".
type TrackingCategory struct {
	TrackingCategoryID string `json:"TrackingCategoryID"`
	Name               string `json:"Name"`
	Option             string `json:"Option"`
}

// TrackingOption returns the option chosen for the named tracking category,
// matching the category name case-insensitively.
func (li LineItem) TrackingOption(category string) string {
	for _, t := range li.Tracking {
		if strings.EqualFold(t.Name, category) {
			return t.Option
		}
	}
	return ""
}

// Tenant is an organisation the OAuth grant can access.
type Tenant struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
	TenantName string `json:"tenantName"`
}

type invoicesResponse struct {
	Invoices []Invoice `json:"Invoices"`
}

var msDateRE = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate understands Xero's "/Date(1518685950940+0000)/" form as well as
// ISO timestamps. Anything else yields nil rather than an error.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}

	if m := msDateRE.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		t := time.UnixMilli(ms).UTC()
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FirstDate returns the first candidate that parses.
func FirstDate(candidates ...string) *time.Time {
	for _, c := range candidates {
		if t := ParseDate(c); t != nil {
			return t
		}
	}
	return nil
}
