package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"sitebooks/backend/models"
)

const (
	defaultAPIBaseURL     = "https://api.xero.com"
	defaultConnectionsURL = "https://api.xero.com/connections"
)

// Client talks to the Xero Accounting API.
type Client struct {
	httpClient     *http.Client
	apiBaseURL     string
	connectionsURL string
	limiter        *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURLs points the client at another API host, mostly for tests.
func WithBaseURLs(apiBaseURL, connectionsURL string) ClientOption {
	return func(c *Client) {
		if apiBaseURL != "" {
			c.apiBaseURL = apiBaseURL
		}
		if connectionsURL != "" {
			c.connectionsURL = connectionsURL
		}
	}
}

// WithRateLimit overrides the outbound request limit.
func WithRateLimit(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// NewClient returns a Client limited to Xero's 60 calls per minute.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		apiBaseURL:     defaultAPIBaseURL,
		connectionsURL: defaultConnectionsURL,
		limiter:        rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchInvoices returns invoices modified at or after since, newest first.
// Only the first page is requested; asking for a page is what makes Xero
// include line items in the list response. DELETED invoices and invoices without an
// id are dropped; the number dropped is returned alongside.
func (c *Client) FetchInvoices(ctx context.Context, accessToken, tenantID string, since time.Time) ([]Invoice, int, error) {
	if tenantID == "" {
		return nil, 0, ErrNoTenant
	}

	q := url.Values{}
	q.Set("order", "UpdatedDateUTC DESC")
	q.Set("page", "1")
	endpoint := c.apiBaseURL + "/api.xro/2.0/Invoices?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Xero-tenant-id", tenantID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("If-Modified-Since", since.UTC().Format(http.TimeFormat))

	var payload invoicesResponse
	if err := c.do(req, "FetchInvoices", &payload); err != nil {
		return nil, 0, err
	}

	kept, skipped := FilterInvoices(payload.Invoices)
	return kept, skipped, nil
}

// Syncable reports whether an invoice may be stored: it has an id, is not
// deleted, and is a plain receivable or payable. Credit notes, prepayments
// and overpayments are left out of the ledger.
func Syncable(inv Invoice) bool {
	if inv.InvoiceID == "" || inv.Status == models.InvoiceStatusDeleted {
		return false
	}
	return models.IsValidInvoiceType(inv.Type)
}

// FilterInvoices drops invoices the sync must never persist.
func FilterInvoices(in []Invoice) ([]Invoice, int) {
	kept := make([]Invoice, 0, len(in))
	for _, inv := range in {
		if !Syncable(inv) {
			continue
		}
		kept = append(kept, inv)
	}
	return kept, len(in) - len(kept)
}

// Tenants lists the organisations the access token is authorised for.
func (c *Client) Tenants(ctx context.Context, accessToken string) ([]Tenant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.connectionsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var tenants []Tenant
	if err := c.do(req, "Tenants", &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// PrimaryTenant picks the first ORGANISATION tenant.
func PrimaryTenant(tenants []Tenant) (Tenant, error) {
	for _, t := range tenants {
		if t.TenantType == "" || t.TenantType == "ORGANISATION" {
			return t, nil
		}
	}
	return Tenant{}, ErrNoTenant
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xero: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("xero: reading %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("xero: decoding %s response: %w", op, err)
	}
	return nil
}
