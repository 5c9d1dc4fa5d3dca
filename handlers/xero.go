package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"sitebooks/backend/logger"
	"sitebooks/backend/security"
	"sitebooks/backend/services"
	"sitebooks/backend/xero"
)

const (
	stateCookieName = "xero_oauth_state"
	stateCookieTTL  = 10 * time.Minute
	syncTimeout     = 60 * time.Second
)

// TenantLister lists the organisations an access token can reach.
type TenantLister interface {
	Tenants(ctx context.Context, accessToken string) ([]xero.Tenant, error)
}

// SyncRunner runs one incremental sync.
type SyncRunner interface {
	Run(ctx context.Context) (services.SyncStats, error)
}

// XeroHandler serves the OAuth connect flow, connection status and the
// cron-triggered sync.
type XeroHandler struct {
	oauth        *oauth2.Config
	httpClient   *http.Client
	tenants      TenantLister
	connections  *services.ConnectionStore
	cipher       *security.Cipher
	syncer       SyncRunner
	appBaseURL   string
	secureCookie bool
}

// XeroHandlerConfig groups XeroHandler dependencies.
type XeroHandlerConfig struct {
	OAuth        *oauth2.Config
	HTTPClient   *http.Client
	Tenants      TenantLister
	Connections  *services.ConnectionStore
	Cipher       *security.Cipher
	Syncer       SyncRunner
	AppBaseURL   string
	SecureCookie bool
}

func NewXeroHandler(cfg XeroHandlerConfig) *XeroHandler {
	return &XeroHandler{
		oauth:        cfg.OAuth,
		httpClient:   cfg.HTTPClient,
		tenants:      cfg.Tenants,
		connections:  cfg.Connections,
		cipher:       cfg.Cipher,
		syncer:       cfg.Syncer,
		appBaseURL:   strings.TrimRight(cfg.AppBaseURL, "/"),
		secureCookie: cfg.SecureCookie,
	}
}

type xeroStatusResponse struct {
	Connected   bool       `json:"connected"`
	TenantID    string     `json:"tenant_id,omitempty"`
	TenantName  string     `json:"tenant_name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type syncResponse struct {
	Success    bool   `json:"success"`
	Fetched    int    `json:"fetched"`
	Upserted   int    `json:"upserted"`
	LineItems  int    `json:"line_items"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Connect handles GET /api/xero/connect. It binds a random state to the
// caller in an encrypted cookie and sends the browser to Xero's consent
// page. Clients asking for JSON get the URL instead of a redirect.
func (h *XeroHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	state := uuid.NewString()
	sealed, err := h.cipher.Encrypt(state + "|" + userID)
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to start Xero connection")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    sealed,
		Path:     "/api/xero",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	authURL := h.oauth.AuthCodeURL(state)
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, map[string]string{"authorization_url": authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /api/xero/callback. Every outcome redirects back to
// the app's profile page with ?xero=connected or ?xero=error.
func (h *XeroHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("xero")

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/xero",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	userID, err := h.completeConnection(r)
	if err != nil {
		log.Error().Err(err).Msg("Xero connection failed")
		http.Redirect(w, r, h.appBaseURL+"/profile?xero=error", http.StatusFound)
		return
	}

	log.Info().Str("user_id", userID).Msg("Xero organisation connected")
	http.Redirect(w, r, h.appBaseURL+"/profile?xero=connected", http.StatusFound)
}

var (
	errStateMissing  = errors.New("state cookie missing")
	errStateMismatch = errors.New("state mismatch")
	errCodeMissing   = errors.New("authorization code missing")
)

func (h *XeroHandler) completeConnection(r *http.Request) (string, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return "", errors.New("authorization denied: " + e)
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return "", errStateMissing
	}
	plain, err := h.cipher.Decrypt(cookie.Value)
	if err != nil {
		return "", errStateMismatch
	}
	state, userID, found := strings.Cut(plain, "|")
	if !found || userID == "" || subtle.ConstantTimeCompare([]byte(state), []byte(q.Get("state"))) != 1 {
		return "", errStateMismatch
	}

	code := q.Get("code")
	if code == "" {
		return "", errCodeMissing
	}

	ctx := r.Context()
	tok, err := xero.Exchange(ctx, h.oauth, h.httpClient, code)
	if err != nil {
		return "", err
	}
	tenants, err := h.tenants.Tenants(ctx, tok.AccessToken)
	if err != nil {
		return "", err
	}
	tenant, err := xero.PrimaryTenant(tenants)
	if err != nil {
		return "", err
	}
	if _, err := h.connections.UpsertConnection(ctx, userID, tenant, tok); err != nil {
		return "", err
	}
	return userID, nil
}

// Status handles GET /api/xero/status. Tokens are never returned.
func (h *XeroHandler) Status(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connections.ActiveConnection(r.Context())
	if errors.Is(err, services.ErrNoActiveConnection) {
		writeJSON(w, http.StatusOK, xeroStatusResponse{Connected: false})
		return
	}
	if err != nil {
		writeServiceError(w, r, err, http.StatusInternalServerError, "Failed to load Xero connection")
		return
	}

	writeJSON(w, http.StatusOK, xeroStatusResponse{
		Connected:   true,
		TenantID:    conn.TenantID,
		TenantName:  conn.TenantName,
		ExpiresAt:   &conn.ExpiresAt,
		ConnectedAt: &conn.ConnectedAt,
		UpdatedAt:   &conn.UpdatedAt,
	})
}

// SyncIncremental handles GET /api/xero/sync-incremental, called by cron.
func (h *XeroHandler) SyncIncremental(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	start := time.Now()
	stats, err := h.syncer.Run(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		log := logger.WithComponent("sync")
		log.Error().Err(err).Msg("Incremental sync failed")

		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrSyncInProgress) {
			status = http.StatusConflict
		}
		writeJSON(w, status, syncResponse{Success: false, Error: err.Error(), DurationMS: elapsed})
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success:    true,
		Fetched:    stats.Fetched,
		Upserted:   stats.Upserted,
		LineItems:  stats.LineItems,
		Skipped:    stats.Skipped,
		DurationMS: elapsed,
	})
}
