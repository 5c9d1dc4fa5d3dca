package database

import (
	"database/sql"

	"sitebooks/backend/migrations"
)

// NewTestDB returns an in-memory SQLite database with every migration applied.
func NewTestDB() (*sql.DB, error) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
