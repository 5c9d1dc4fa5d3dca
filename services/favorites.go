package services

import (
	"context"
	"fmt"
	"time"

	"sitebooks/backend/models"
)

// ListFavoriteDepartments returns the departments a user has pinned.
func ListFavoriteDepartments(ctx context.Context, db Querier, userID string) ([]models.Department, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.id, d.name, d.status, d.created_at, d.updated_at
		FROM favorite_departments f
		JOIN departments d ON d.id = f.department_id
		WHERE f.user_id = $1
		ORDER BY d.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	defer rows.Close()

	departments := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// AddFavoriteDepartment pins a department. Adding it again is a no-op.
func AddFavoriteDepartment(ctx context.Context, db Querier, userID, departmentID string) error {
	if _, err := GetDepartment(ctx, db, departmentID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO favorite_departments (user_id, department_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, department_id) DO NOTHING
	`, userID, departmentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error adding favorite: %w", err)
	}
	return nil
}

// RemoveFavoriteDepartment unpins a department. Removing a missing favorite
// is not an error.
func RemoveFavoriteDepartment(ctx context.Context, db Querier, userID, departmentID string) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM favorite_departments WHERE user_id = $1 AND department_id = $2",
		userID, departmentID)
	if err != nil {
		return fmt.Errorf("error removing favorite: %w", err)
	}
	return nil
}
