package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitebooks/backend/models"
)

// UpsertUser records a signed-in Firebase user. Users whose email appears in
// adminEmails are promoted to admin; an existing admin is never demoted here.
func UpsertUser(ctx context.Context, db Querier, u models.User, adminEmails []string) (*models.User, error) {
	if u.ID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	role := models.RoleUser
	if isAdminEmail(u.Email, adminEmails) {
		role = models.RoleAdmin
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			role = CASE WHEN users.role = 'admin' THEN users.role ELSE excluded.role END,
			updated_at = excluded.updated_at
	`, u.ID, u.Email, u.Name, role, now, now)
	if err != nil {
		return nil, fmt.Errorf("error upserting user: %w", err)
	}

	return GetUser(ctx, db, u.ID)
}

// GetUser loads a user by Firebase UID.
func GetUser(ctx context.Context, db Querier, id string) (*models.User, error) {
	var u models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, email, name, role, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return &u, nil
}

// GetUserRole returns the role of a user, ErrNotFound if the user has never synced.
func GetUserRole(ctx context.Context, db Querier, userID string) (string, error) {
	var role string
	err := db.QueryRowContext(ctx, "SELECT role FROM users WHERE id = $1", userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if role == "" {
		return models.RoleUser, nil
	}
	return role, nil
}

// IsAdmin reports whether the user holds the admin role.
func IsAdmin(ctx context.Context, db Querier, userID string) (bool, error) {
	role, err := GetUserRole(ctx, db, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}

func isAdminEmail(email string, adminEmails []string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range adminEmails {
		if e == email {
			return true
		}
	}
	return false
}
