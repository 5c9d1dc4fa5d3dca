package xero

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"sitebooks/backend/logger"
	"sitebooks/backend/models"
)

// RefreshMargin is how close to expiry a token may get before it is refreshed.
const RefreshMargin = 5 * time.Minute

// refreshTimeout bounds a shared refresh, which runs detached from any one
// caller's context.
const refreshTimeout = 30 * time.Second

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = 30 * time.Minute

// TokenStore persists refreshed tokens.
type TokenStore interface {
	// SaveTokens writes the new tokens only if conn.Version still matches the
	// stored row. It reports false when another writer got there first.
	SaveTokens(ctx context.Context, conn *models.XeroConnection, tok *oauth2.Token) (bool, error)
	// GetConnection reloads a connection by id.
	GetConnection(ctx context.Context, id string) (*models.XeroConnection, error)
}

// TokenManager hands out bearer tokens for a connection, refreshing them when
// they are within RefreshMargin of expiry. Refreshes of the same connection
// are collapsed in-process, and the store's version check covers other
// processes.
type TokenManager struct {
	oauth      *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	group      singleflight.Group
	now        func() time.Time
}

// NewTokenManager creates a TokenManager. hc may be nil.
func NewTokenManager(oc *oauth2.Config, store TokenStore, hc *http.Client) *TokenManager {
	return &TokenManager{
		oauth:      oc,
		store:      store,
		httpClient: hc,
		now:        time.Now,
	}
}

// NeedsRefresh reports whether conn's access token expires within RefreshMargin.
func (m *TokenManager) NeedsRefresh(conn *models.XeroConnection) bool {
	return !conn.ExpiresAt.After(m.now().Add(RefreshMargin))
}

// ValidToken returns a usable access token for conn, refreshing first if
// needed. On success conn carries the current tokens.
func (m *TokenManager) ValidToken(ctx context.Context, conn *models.XeroConnection) (string, error) {
	if !m.NeedsRefresh(conn) {
		return conn.AccessToken, nil
	}

	// The refresh outlives a caller that gives up, so the rotated refresh
	// token still gets saved for everyone else waiting on it.
	ch := m.group.DoChan(conn.ID, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(refreshCtx, conn)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if res.Err != nil {
		return "", res.Err
	}

	fresh := res.Val.(*models.XeroConnection)
	if fresh != conn {
		*conn = *fresh
	}
	return conn.AccessToken, nil
}

func (m *TokenManager) refresh(ctx context.Context, conn *models.XeroConnection) (*models.XeroConnection, error) {
	log := logger.WithComponent("xero-token")
	log.Info().Str("connection_id", conn.ID).Time("expires_at", conn.ExpiresAt).Msg("Refreshing Xero access token")

	src := m.oauth.TokenSource(withHTTPClient(ctx, m.httpClient), &oauth2.Token{RefreshToken: conn.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &RefreshError{ConnectionID: conn.ID, Err: err}
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = m.now().Add(defaultTokenLifetime)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = conn.RefreshToken
	}

	saved, err := m.store.SaveTokens(ctx, conn, tok)
	if err != nil {
		return nil, &RefreshError{ConnectionID: conn.ID, Err: err}
	}
	if saved {
		updated := *conn
		updated.AccessToken = tok.AccessToken
		updated.RefreshToken = tok.RefreshToken
		updated.ExpiresAt = tok.Expiry
		updated.Version++
		return &updated, nil
	}

	// Another process refreshed first; use its token if it is good.
	log.Warn().Str("connection_id", conn.ID).Msg("Token refresh lost a version race, reloading connection")
	latest, err := m.store.GetConnection(ctx, conn.ID)
	if err != nil {
		return nil, &RefreshError{ConnectionID: conn.ID, Err: err}
	}
	if m.NeedsRefresh(latest) {
		return nil, ErrRefreshConflict
	}
	return latest, nil
}
