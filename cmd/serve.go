package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sitebooks/backend/api"
	"sitebooks/backend/handlers"
	"sitebooks/backend/logger"
	"sitebooks/backend/middleware"
	"sitebooks/backend/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server. When SYNC_SCHEDULE is set the Xero sync
also runs in-process on that cron schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	log := logger.WithComponent("server")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier middleware.TokenVerifier
	if a.cfg.AuthDisabled {
		log.Warn().Msg("AUTH_DISABLED is set, every request runs as the development user")
	} else if verifier, err = middleware.NewFirebaseVerifier(ctx, a.cfg); err != nil {
		return err
	}

	xeroHandler := handlers.NewXeroHandler(handlers.XeroHandlerConfig{
		OAuth:        a.oauth,
		HTTPClient:   a.httpClient,
		Tenants:      a.client,
		Connections:  a.connections,
		Cipher:       a.cipher,
		Syncer:       a.syncer,
		AppBaseURL:   a.cfg.AppBaseURL,
		SecureCookie: a.cfg.IsProduction(),
	})
	server := api.NewServer(a.cfg, a.db, verifier, xeroHandler)

	scheduler, err := services.NewScheduler(a.cfg.SyncSchedule, a.syncer, 60*time.Second)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Handler:      server.Handler(),
		Addr:         ":" + a.cfg.Port,
		WriteTimeout: 90 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.cfg.Port).Str("env", a.cfg.AppEnv).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
