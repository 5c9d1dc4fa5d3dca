package cmd

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"sitebooks/backend/config"
	"sitebooks/backend/database"
	"sitebooks/backend/logger"
	"sitebooks/backend/security"
	"sitebooks/backend/services"
	"sitebooks/backend/xero"
)

const devEncryptionKey = "default-key-for-development-only"

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg         *config.Config
	db          *sql.DB
	cipher      *security.Cipher
	httpClient  *http.Client
	oauth       *oauth2.Config
	client      *xero.Client
	connections *services.ConnectionStore
	syncer      *services.Syncer
}

// setup loads configuration, configures logging and opens the migrated
// database.
func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.WithComponent("setup")

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	key := cfg.EncryptionKey
	if key == "" {
		log.Warn().Msg("ENCRYPTION_KEY not set, using a default key. This is NOT secure for production!")
		key = devEncryptionKey
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		db:         db,
		cipher:     cipher,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		oauth:      xero.NewOAuthConfig(cfg),
	}
	a.client = xero.NewClient(
		xero.WithHTTPClient(a.httpClient),
		xero.WithBaseURLs(cfg.XeroAPIBaseURL, cfg.XeroConnectionsURL),
	)
	a.connections = services.NewConnectionStore(db, cipher)
	tokens := xero.NewTokenManager(a.oauth, a.connections, a.httpClient)
	a.syncer = services.NewSyncer(db, a.connections, tokens, a.client, services.SyncOptions{
		Lookback:           cfg.SyncLookback,
		DepartmentTracking: cfg.DepartmentTracking,
		StageTracking:      cfg.StageTracking,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
