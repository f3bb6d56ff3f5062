package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finanzamt/internal/tax"
)

var ustvaCmd = &cobra.Command{
	Use:   "ustva",
	Short: "Compute the UStVA figures for a reporting period",
	Long: `Aggregate stored receipts into the figures a German VAT pre-return
(Umsatzsteuer-Voranmeldung) needs: input tax from purchases, output tax
from sales, broken down per VAT rate, and the resulting net liability.

Receipts without a date or without a positive VAT amount cannot enter
the return and are reported as skipped.`,
	Example: `  # First quarter 2026
  finanzamt ustva --from 2026-01-01 --to 2026-03-31

  # Single month, machine-readable
  finanzamt ustva --from 2026-05-01 --to 2026-05-31 --json`,
	RunE: runUSTVA,
}

func init() {
	rootCmd.AddCommand(ustvaCmd)

	ustvaCmd.Flags().String("from", "", "Period start (YYYY-MM-DD)")
	ustvaCmd.Flags().String("to", "", "Period end (YYYY-MM-DD), inclusive")
	ustvaCmd.Flags().Bool("json", false, "Output as JSON")
	_ = ustvaCmd.MarkFlagRequired("from")
	_ = ustvaCmd.MarkFlagRequired("to")
}

func runUSTVA(cmd *cobra.Command, args []string) error {
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	from, err := time.Parse("2006-01-02", fromFlag)
	if err != nil {
		return fmt.Errorf("invalid --from date %q: expected YYYY-MM-DD", fromFlag)
	}
	to, err := time.Parse("2006-01-02", toFlag)
	if err != nil {
		return fmt.Errorf("invalid --to date %q: expected YYYY-MM-DD", toFlag)
	}
	if to.Before(from) {
		return fmt.Errorf("--to must not be before --from")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rows, skipped, err := a.repo.AggregateVAT(ctx, from, to)
	if err != nil {
		return err
	}
	report := tax.NewReport(from, to, rows, skipped)

	if jsonOutput {
		raw, err := report.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(raw)
		return nil
	}

	fmt.Println(report.Summary())
	return nil
}
