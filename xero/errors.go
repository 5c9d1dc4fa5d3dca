package xero

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshConflict is returned when another writer refreshed the
	// connection and its token is not usable either.
	ErrRefreshConflict = errors.New("xero: concurrent token refresh conflict")

	// ErrNoTenant is returned when the grant has no organisation attached.
	ErrNoTenant = errors.New("xero: no organisation tenant on connection")
)

// APIError is a non-2xx response from Xero.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xero: %s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// RefreshError wraps a failed refresh_token grant.
type RefreshError struct {
	ConnectionID string
	Err          error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("xero: refreshing token for connection %s: %v", e.ConnectionID, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
