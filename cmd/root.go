package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitebooks/backend/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sitebooks",
	Short: "Construction project finance backend",
	Long: `sitebooks serves the project dashboard API: departments, stages,
budgets and income/expense summaries built from Xero invoices.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	// Commands reconfigure logging once the environment is loaded.
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
