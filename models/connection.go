package models

import "time"

// XeroConnection is the OAuth grant for one Xero organisation. Tokens are
// held decrypted in memory and encrypted at rest.
type XeroConnection struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	TenantID     string    `json:"tenant_id"`
	TenantName   string    `json:"tenant_name"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsActive     bool      `json:"is_active"`
	Version      int64     `json:"-"`
	ConnectedAt  time.Time `json:"connected_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
