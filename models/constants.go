package models

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Invoice types as reported by Xero
const (
	InvoiceTypeReceivable = "ACCREC"
	InvoiceTypePayable    = "ACCPAY"
)

// IsValidInvoiceType reports whether t is a type the ledger understands.
func IsValidInvoiceType(t string) bool {
	return t == InvoiceTypeReceivable || t == InvoiceTypePayable
}

// Invoice statuses as reported by Xero
const (
	InvoiceStatusDraft      = "DRAFT"
	InvoiceStatusSubmitted  = "SUBMITTED"
	InvoiceStatusAuthorised = "AUTHORISED"
	InvoiceStatusPaid       = "PAID"
	InvoiceStatusVoided     = "VOIDED"
	InvoiceStatusDeleted    = "DELETED"
)

// Department statuses
const (
	DepartmentActive    = "active"
	DepartmentOnHold    = "on_hold"
	DepartmentCompleted = "completed"
)

// IsValidDepartmentStatus reports whether s is a known department status.
func IsValidDepartmentStatus(s string) bool {
	switch s {
	case DepartmentActive, DepartmentOnHold, DepartmentCompleted:
		return true
	}
	return false
}
