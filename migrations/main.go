package migrations

import (
	"database/sql"
	"fmt"

	"sitebooks/backend/logger"
)

type migration struct {
	name       string
	statements []string
}

// RunMigrations executes all migrations in order, skipping those already
// recorded in the migrations table. Each migration runs in its own transaction.
func RunMigrations(db *sql.DB) error {
	log := logger.WithComponent("migrations")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	all := []migration{
		{"create_users", createUsers},
		{"create_departments_and_stages", createDepartmentsAndStages},
		{"create_invoices", createInvoices},
		{"create_budgets_and_favorites", createBudgetsAndFavorites},
		{"create_xero_connections", createXeroConnections},
		{"create_department_invoice_summaries", createDepartmentInvoiceSummaries},
	}

	for _, m := range all {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE name = $1", m.name).Scan(&count); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			log.Debug().Str("migration", m.name).Msg("Skipping already applied migration")
			continue
		}

		log.Info().Str("migration", m.name).Msg("Applying migration")
		if err := apply(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
	}

	return nil
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (name) VALUES ($1)", m.name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
