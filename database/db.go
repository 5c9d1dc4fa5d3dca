package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"sitebooks/backend/config"
	"sitebooks/backend/logger"
	"sitebooks/backend/migrations"
)

// Open connects to the configured store and brings the schema up to date.
func Open(cfg *config.Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = OpenPostgres(cfg.Postgres.ConnectionString())
	default:
		db, err = OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// IsPostgres reports whether db is backed by the PostgreSQL driver.
func IsPostgres(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// OpenSQLite opens a SQLite database file. ":memory:" is allowed.
func OpenSQLite(path string) (*sql.DB, error) {
	log := logger.WithComponent("database")

	dsn := path + "?_journal=WAL&_busy_timeout=10000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Info().Str("path", path).Msg("Connected to SQLite")
	return db, nil
}

// OpenPostgres opens a PostgreSQL connection pool.
func OpenPostgres(connStr string) (*sql.DB, error) {
	log := logger.WithComponent("database")
	log.Info().Str("dsn", MaskPassword(connStr)).Msg("Connecting to PostgreSQL")

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")
	return db, nil
}

// MaskPassword masks the password in a connection string for logging
func MaskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}

// Placeholders returns "$start, $start+1, ..." for n positional parameters.
// Parameters must appear in ascending order in a query so both drivers bind
// them identically.
func Placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}
