// Package cmd implements the finanzamt command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finanzamt/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "finanzamt",
	Short: "Receipt extraction and German VAT (UStVA) reporting",
	Long: `Finanzamt ingests receipt and invoice documents, extracts structured
accounting data with a local language model, and aggregates the results
into the figures a German VAT pre-return (UStVA) needs.

Documents are identified by the SHA-256 hash of their text content, so
the same receipt is never extracted or stored twice.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Use --help to see available commands and options.")
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database file path (default: from FINANZAMT_DB_PATH)")
}
