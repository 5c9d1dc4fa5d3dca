package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sitebooks/backend/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental Xero sync",
	Long: `Run the incremental Xero sync once using the active organisation
connection, then rebuild the department summaries.`,
	Example: `  # Sync invoices changed in the last day
  sitebooks sync

  # Widen the window
  SYNC_LOOKBACK=168h sitebooks sync`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Duration("timeout", 60*time.Second, "Abort the run after this long")
}

func runSync(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	log := logger.WithComponent("sync")
	stats, err := a.syncer.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Sync failed")
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
