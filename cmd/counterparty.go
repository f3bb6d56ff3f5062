package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var counterpartyCmd = &cobra.Command{
	Use:   "counterparty",
	Short: "Inspect and verify extracted counterparties",
	Long: `Counterparties are created automatically during extraction and start
out unverified. Verifying one confirms the extracted identity is correct,
so later receipts matching it can be trusted without review.`,
}

var counterpartyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored counterparties",
	Example: `  finanzamt counterparty list
  finanzamt counterparty list --verified`,
	RunE: runCounterpartyList,
}

var counterpartyVerifyCmd = &cobra.Command{
	Use:   "verify [id]",
	Short: "Mark a counterparty as verified",
	Args:  cobra.ExactArgs(1),
	RunE:  runCounterpartyVerify,
}

func init() {
	rootCmd.AddCommand(counterpartyCmd)
	counterpartyCmd.AddCommand(counterpartyListCmd)
	counterpartyCmd.AddCommand(counterpartyVerifyCmd)

	counterpartyListCmd.Flags().Bool("verified", false, "Only show verified counterparties")
	counterpartyVerifyCmd.Flags().Bool("revoke", false, "Revoke verification instead")
}

func runCounterpartyList(cmd *cobra.Command, args []string) error {
	verifiedOnly, _ := cmd.Flags().GetBool("verified")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cps, err := a.repo.ListCounterparties(ctx, verifiedOnly)
	if err != nil {
		return err
	}
	if len(cps) == 0 {
		fmt.Println("No counterparties stored.")
		return nil
	}

	for _, cp := range cps {
		status := " "
		if cp.Verified {
			status = "✓"
		}
		line := fmt.Sprintf("%s %s  %s", status, cp.ID, cp.Name)
		if cp.VATID != "" {
			line += fmt.Sprintf("  (%s)", cp.VATID)
		}
		fmt.Println(line)
	}
	return nil
}

func runCounterpartyVerify(cmd *cobra.Command, args []string) error {
	revoke, _ := cmd.Flags().GetBool("revoke")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.repo.SetCounterpartyVerified(ctx, args[0], !revoke); err != nil {
		return err
	}

	if revoke {
		fmt.Printf("Counterparty %s verification revoked\n", args[0])
	} else {
		fmt.Printf("Counterparty %s verified\n", args[0])
	}
	return nil
}
