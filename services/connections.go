package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"sitebooks/backend/models"
	"sitebooks/backend/security"
	"sitebooks/backend/xero"
)

// ConnectionStore persists Xero connections with tokens encrypted at rest.
// It is the xero.TokenStore used by the token manager.
type ConnectionStore struct {
	db     *sql.DB
	cipher *security.Cipher
}

func NewConnectionStore(db *sql.DB, cipher *security.Cipher) *ConnectionStore {
	return &ConnectionStore{db: db, cipher: cipher}
}

const connectionColumns = `id, user_id, tenant_id, tenant_name, access_token_enc, refresh_token_enc,
	expires_at, is_active, version, connected_at, updated_at`

// UpsertConnection stores the grant from an OAuth callback. A user has at most
// one active connection; reconnecting to another tenant deactivates the rest.
func (s *ConnectionStore) UpsertConnection(ctx context.Context, userID string, tenant xero.Tenant, tok *oauth2.Token) (*models.XeroConnection, error) {
	accessEnc, refreshEnc, err := s.encryptTokens(tok)
	if err != nil {
		return nil, err
	}

	expires := tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		expires = time.Now().UTC().Add(30 * time.Minute)
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO xero_connections (id, user_id, tenant_id, tenant_name, access_token_enc, refresh_token_enc,
			expires_at, is_active, version, connected_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, 1, $8, $9)
		ON CONFLICT (user_id, tenant_id) DO UPDATE SET
			tenant_name = excluded.tenant_name,
			access_token_enc = excluded.access_token_enc,
			refresh_token_enc = excluded.refresh_token_enc,
			expires_at = excluded.expires_at,
			is_active = TRUE,
			version = xero_connections.version + 1,
			connected_at = excluded.connected_at,
			updated_at = excluded.updated_at
	`, uuid.NewString(), userID, tenant.TenantID, tenant.TenantName, accessEnc, refreshEnc, expires, now, now)
	if err != nil {
		return nil, fmt.Errorf("error upserting Xero connection: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE xero_connections SET is_active = FALSE, updated_at = $1
		WHERE user_id = $2 AND tenant_id <> $3
	`, now, userID, tenant.TenantID)
	if err != nil {
		return nil, fmt.Errorf("error deactivating old connections: %w", err)
	}

	conn, err := s.scanOne(tx.QueryRowContext(ctx,
		"SELECT "+connectionColumns+" FROM xero_connections WHERE user_id = $1 AND tenant_id = $2",
		userID, tenant.TenantID))
	if err != nil {
		return nil, err
	}
	return conn, tx.Commit()
}

// SaveTokens writes refreshed tokens if the row is still at conn.Version.
func (s *ConnectionStore) SaveTokens(ctx context.Context, conn *models.XeroConnection, tok *oauth2.Token) (bool, error) {
	accessEnc, refreshEnc, err := s.encryptTokens(tok)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE xero_connections
		SET access_token_enc = $1, refresh_token_enc = $2, expires_at = $3,
			version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6
	`, accessEnc, refreshEnc, tok.Expiry.UTC(), time.Now().UTC(), conn.ID, conn.Version)
	if err != nil {
		return false, fmt.Errorf("error saving refreshed tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetConnection loads a connection by id.
func (s *ConnectionStore) GetConnection(ctx context.Context, id string) (*models.XeroConnection, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		"SELECT "+connectionColumns+" FROM xero_connections WHERE id = $1", id))
}

// ActiveConnection returns the organisation-wide connection: the most
// recently connected active grant held by an admin.
func (s *ConnectionStore) ActiveConnection(ctx context.Context) (*models.XeroConnection, error) {
	conn, err := s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.tenant_id, c.tenant_name, c.access_token_enc, c.refresh_token_enc,
			c.expires_at, c.is_active, c.version, c.connected_at, c.updated_at
		FROM xero_connections c
		JOIN users u ON u.id = c.user_id
		WHERE c.is_active = TRUE AND u.role = $1
		ORDER BY c.connected_at DESC
		LIMIT 1
	`, models.RoleAdmin))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoActiveConnection
	}
	return conn, err
}

func (s *ConnectionStore) encryptTokens(tok *oauth2.Token) (string, string, error) {
	accessEnc, err := s.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return "", "", fmt.Errorf("error encrypting access token: %w", err)
	}
	refreshEnc, err := s.cipher.Encrypt(tok.RefreshToken)
	if err != nil {
		return "", "", fmt.Errorf("error encrypting refresh token: %w", err)
	}
	return accessEnc, refreshEnc, nil
}

func (s *ConnectionStore) scanOne(row *sql.Row) (*models.XeroConnection, error) {
	var (
		c                     models.XeroConnection
		accessEnc, refreshEnc string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.TenantID, &c.TenantName, &accessEnc, &refreshEnc,
		&c.ExpiresAt, &c.IsActive, &c.Version, &c.ConnectedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading Xero connection: %w", err)
	}

	if c.AccessToken, err = s.cipher.Decrypt(accessEnc); err != nil {
		return nil, fmt.Errorf("error decrypting access token: %w", err)
	}
	if c.RefreshToken, err = s.cipher.Decrypt(refreshEnc); err != nil {
		return nil, fmt.Errorf("error decrypting refresh token: %w", err)
	}
	return &c, nil
}
