package cmd

import (
	"github.com/spf13/cobra"

	"sitebooks/backend/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		log := logger.WithComponent("migrate")
		log.Info().Str("driver", a.cfg.DBDriver).Msg("Migrations completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
