package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sitebooks/backend/logger"
)

// Config holds every setting the backend reads from the environment.
type Config struct {
	Port   string
	AppEnv string

	// Database
	DBDriver   string
	SQLitePath string
	Postgres   PostgresConfig

	// Security
	EncryptionKey string
	CronSecret    string

	// Firebase
	FirebaseProjectID      string
	FirebaseCredentials    string
	FirebaseCredentialsB64 string
	AuthDisabled           bool
	AdminEmails            []string

	// HTTP
	CORSAllowedOrigins []string
	AppBaseURL         string

	// Xero
	XeroClientID       string
	XeroClientSecret   string
	XeroRedirectURI    string
	XeroScopes         []string
	XeroAuthURL        string
	XeroTokenURL       string
	XeroAPIBaseURL     string
	XeroConnectionsURL string
	DepartmentTracking string
	StageTracking      string
	OverheadsStageName string
	SyncSchedule       string
	SyncLookback       time.Duration

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// PostgresConfig holds database connection parameters
type PostgresConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnectionString builds a PostgreSQL connection string. DATABASE_URL wins when set.
func (p PostgresConfig) ConnectionString() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	lookback, err := time.ParseDuration(getEnv("SYNC_LOOKBACK", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_LOOKBACK: %w", err)
	}

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		AppEnv:     getEnv("APP_ENV", "development"),
		DBDriver:   getEnv("DB_DRIVER", "sqlite3"),
		SQLitePath: getEnv("SQLITE_PATH", "./sitebooks.db"),
		Postgres: PostgresConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "sitebooks"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		EncryptionKey:          getEnv("ENCRYPTION_KEY", ""),
		CronSecret:             getEnv("CRON_SECRET", ""),
		FirebaseProjectID:      getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials:    getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseCredentialsB64: getEnv("FIREBASE_SERVICE_ACCOUNT_BASE64", ""),
		AuthDisabled:           getBool("AUTH_DISABLED", false),
		AdminEmails:            splitList(strings.ToLower(getEnv("ADMIN_EMAILS", ""))),
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		AppBaseURL:             strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		XeroClientID:           getEnv("XERO_CLIENT_ID", ""),
		XeroClientSecret:       getEnv("XERO_CLIENT_SECRET", ""),
		XeroRedirectURI:        getEnv("XERO_REDIRECT_URI", "http://localhost:8080/api/xero/callback"),
		XeroScopes:             strings.Fields(getEnv("XERO_SCOPES", "openid profile email offline_access accounting.transactions.read accounting.settings.read")),
		XeroAuthURL:            getEnv("XERO_AUTH_URL", "https://login.xero.com/identity/connect/authorize"),
		XeroTokenURL:           getEnv("XERO_TOKEN_URL", "https://identity.xero.com/connect/token"),
		XeroAPIBaseURL:         strings.TrimRight(getEnv("XERO_API_BASE_URL", "https://api.xero.com"), "/"),
		XeroConnectionsURL:     getEnv("XERO_CONNECTIONS_URL", "https://api.xero.com/connections"),
		DepartmentTracking:     getEnv("XERO_DEPARTMENT_TRACKING", "Department"),
		StageTracking:          getEnv("XERO_STAGE_TRACKING", "Stage"),
		OverheadsStageName:     getEnv("OVERHEADS_STAGE_NAME", "Overheads"),
		SyncSchedule:           getEnv("SYNC_SCHEDULE", ""),
		SyncLookback:           lookback,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:          getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:              getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	if c.SyncLookback <= 0 {
		return fmt.Errorf("SYNC_LOOKBACK must be positive")
	}
	if !c.IsProduction() {
		return nil
	}
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if c.XeroClientID == "" || c.XeroClientSecret == "" {
		return fmt.Errorf("XERO_CLIENT_ID and XERO_CLIENT_SECRET are required")
	}
	if c.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}
	if c.AuthDisabled {
		return fmt.Errorf("AUTH_DISABLED cannot be set in production")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
