package xero

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"sitebooks/backend/models"
)

type memoryStore struct {
	mu    sync.Mutex
	conn  models.XeroConnection
	saves int
	// raceWith, when set, is installed as the stored row before the first
	// save so that save loses the version check.
	raceWith *models.XeroConnection
}

func (s *memoryStore) SaveTokens(_ context.Context, conn *models.XeroConnection, tok *oauth2.Token) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raceWith != nil {
		s.conn = *s.raceWith
		s.raceWith = nil
	}
	if s.conn.Version != conn.Version {
		return false, nil
	}
	s.saves++
	s.conn.AccessToken = tok.AccessToken
	s.conn.RefreshToken = tok.RefreshToken
	s.conn.ExpiresAt = tok.Expiry
	s.conn.Version++
	return true, nil
}

func (s *memoryStore) GetConnection(_ context.Context, id string) (*models.XeroConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conn
	return &c, nil
}

func newTokenServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":1800}`))
	}))
}

func newTestManager(srv *httptest.Server, store TokenStore, now time.Time) *TokenManager {
	oc := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  srv.URL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	m := NewTokenManager(oc, store, srv.Client())
	m.now = func() time.Time { return now }
	return m
}

func testConnection(expires time.Time) models.XeroConnection {
	return models.XeroConnection{
		ID:           "conn-1",
		TenantID:     "tenant-1",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    expires,
		IsActive:     true,
		Version:      1,
	}
}

func TestValidToken_RefreshesInsideMargin(t *testing.T) {
	var hits int32
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conn := testConnection(now.Add(4 * time.Minute))
	store := &memoryStore{conn: conn}
	m := newTestManager(srv, store, now)

	tok, err := m.ValidToken(context.Background(), &conn)
	require.NoError(t, err)

	assert.Equal(t, "new-access", tok)
	assert.Equal(t, "new-refresh", conn.RefreshToken)
	assert.Equal(t, int64(2), conn.Version)
	assert.EqualValues(t, 1, hits)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "new-access", store.conn.AccessToken)
}

func TestValidToken_NoRefreshOutsideMargin(t *testing.T) {
	var hits int32
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conn := testConnection(now.Add(6 * time.Minute))
	store := &memoryStore{conn: conn}
	m := newTestManager(srv, store, now)

	tok, err := m.ValidToken(context.Background(), &conn)
	require.NoError(t, err)

	assert.Equal(t, "old-access", tok)
	assert.EqualValues(t, 0, hits)
	assert.Equal(t, 0, store.saves)
}

func TestNeedsRefresh_BoundaryIsInclusive(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m := &TokenManager{now: func() time.Time { return now }}

	exact := testConnection(now.Add(RefreshMargin))
	after := testConnection(now.Add(RefreshMargin + time.Second))
	expired := testConnection(now.Add(-time.Hour))

	assert.True(t, m.NeedsRefresh(&exact))
	assert.False(t, m.NeedsRefresh(&after))
	assert.True(t, m.NeedsRefresh(&expired))
}

func TestValidToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	var hits int32
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	base := testConnection(now.Add(time.Minute))
	store := &memoryStore{conn: base}
	m := newTestManager(srv, store, now)

	var wg sync.WaitGroup
	tokens := make([]string, 5)
	errs := make([]error, 5)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := base
			tokens[i], errs[i] = m.ValidToken(context.Background(), &c)
		}(i)
	}
	wg.Wait()

	for i := range tokens {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", tokens[i])
	}
	// Late arrivals may start a second flight after the first completes, but
	// the version check lets only one write through.
	assert.Equal(t, 1, store.saves)
}

func TestValidToken_LostRaceUsesWinnersToken(t *testing.T) {
	var hits int32
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conn := testConnection(now.Add(time.Minute))
	winner := conn
	winner.AccessToken = "winner-access"
	winner.RefreshToken = "winner-refresh"
	winner.ExpiresAt = now.Add(30 * time.Minute)
	winner.Version = 2

	store := &memoryStore{conn: conn, raceWith: &winner}
	m := newTestManager(srv, store, now)

	tok, err := m.ValidToken(context.Background(), &conn)
	require.NoError(t, err)
	assert.Equal(t, "winner-access", tok)
	assert.Equal(t, int64(2), conn.Version)
	assert.Equal(t, 0, store.saves)
}

func TestValidToken_LostRaceWithStaleWinner(t *testing.T) {
	var hits int32
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conn := testConnection(now.Add(time.Minute))
	stale := conn
	stale.Version = 7

	store := &memoryStore{conn: conn, raceWith: &stale}
	m := newTestManager(srv, store, now)

	_, err := m.ValidToken(context.Background(), &conn)
	assert.ErrorIs(t, err, ErrRefreshConflict)
}

func TestValidToken_RefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conn := testConnection(now)
	store := &memoryStore{conn: conn}
	m := newTestManager(srv, store, now)

	_, err := m.ValidToken(context.Background(), &conn)
	require.Error(t, err)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, "conn-1", refreshErr.ConnectionID)
	assert.Equal(t, "old-access", store.conn.AccessToken)
	assert.Equal(t, 0, store.saves)
}

func TestValidToken_RefreshSurvivesCallerCancel(t *testing.T) {
	var hits int32
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	base := testConnection(now.Add(time.Minute))
	store := &memoryStore{conn: base}
	m := newTestManager(srv, store, now)

	ctx, cancel := context.WithCancel(context.Background())
	first := base
	done := make(chan error, 1)
	go func() {
		_, err := m.ValidToken(ctx, &first)
		done <- err
	}()

	// The token endpoint takes 20ms; give up well before it answers.
	time.Sleep(5 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The refresh the first caller started still lands in the store.
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.saves == 1 && store.conn.RefreshToken == "new-refresh"
	}, time.Second, 5*time.Millisecond)

	second := base
	tok, err := m.ValidToken(context.Background(), &second)
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok)
	assert.Equal(t, 1, store.saves)
}
