package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SYNC_LOOKBACK", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.SyncLookback)
	assert.Equal(t, "Department", cfg.DepartmentTracking)
	assert.Equal(t, "Stage", cfg.StageTracking)
	assert.Equal(t, "Overheads", cfg.OverheadsStageName)
	assert.Contains(t, cfg.XeroScopes, "offline_access")
	assert.False(t, cfg.IsProduction())
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ADMIN_EMAILS", "Boss@Example.com,pm@example.com")
	t.Setenv("APP_BASE_URL", "https://app.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"boss@example.com", "pm@example.com"}, cfg.AdminEmails)
	assert.Equal(t, "https://app.example", cfg.AppBaseURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("lookback", func(t *testing.T) {
		t.Setenv("SYNC_LOOKBACK", "yesterday")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("negative lookback", func(t *testing.T) {
		t.Setenv("SYNC_LOOKBACK", "-1h")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ENCRYPTION_KEY", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")

	t.Setenv("ENCRYPTION_KEY", "k")
	t.Setenv("XERO_CLIENT_ID", "id")
	t.Setenv("XERO_CLIENT_SECRET", "secret")
	t.Setenv("CRON_SECRET", "cron")
	t.Setenv("AUTH_DISABLED", "true")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_DISABLED")

	t.Setenv("AUTH_DISABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestPostgresConnectionString(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "sitebooks", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/sitebooks?sslmode=disable", p.ConnectionString())

	p.URL = "postgres://other"
	assert.Equal(t, "postgres://other", p.ConnectionString())
}
