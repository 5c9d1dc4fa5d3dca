package models

import "time"

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stage is a construction phase scoped to one department.
type Stage struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"department_id"`
	Name         string    `json:"name"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// FavoriteDepartment pins a department for a user.
type FavoriteDepartment struct {
	UserID       string    `json:"user_id"`
	DepartmentID string    `json:"department_id"`
	CreatedAt    time.Time `json:"created_at"`
}
