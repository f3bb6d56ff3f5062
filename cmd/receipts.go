package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finanzamt/internal/booking"
	"finanzamt/pkg/models"
)

var receiptsCmd = &cobra.Command{
	Use:   "receipts",
	Short: "Inspect stored receipts",
}

var receiptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored receipts",
	Example: `  finanzamt receipts list
  finanzamt receipts list --type sale
  finanzamt receipts list --category travel
  finanzamt receipts list --from 2026-01-01 --to 2026-03-31`,
	RunE: runReceiptsList,
}

var receiptsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one receipt with line items and VAT splits",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceiptsShow,
}

var receiptsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a receipt and its dependent rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceiptsDelete,
}

func init() {
	rootCmd.AddCommand(receiptsCmd)
	receiptsCmd.AddCommand(receiptsListCmd)
	receiptsCmd.AddCommand(receiptsShowCmd)
	receiptsCmd.AddCommand(receiptsDeleteCmd)

	receiptsListCmd.Flags().StringP("type", "t", "", "Filter by direction: purchase or sale")
	receiptsListCmd.Flags().StringP("category", "c", "", "Filter by expense category")
	receiptsListCmd.Flags().String("from", "", "Period start (YYYY-MM-DD)")
	receiptsListCmd.Flags().String("to", "", "Period end (YYYY-MM-DD), inclusive")

	receiptsShowCmd.Flags().Bool("json", false, "Output as JSON")
}

func runReceiptsList(cmd *cobra.Command, args []string) error {
	directionFlag, _ := cmd.Flags().GetString("type")
	categoryFlag, _ := cmd.Flags().GetString("category")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var receipts []*models.Receipt
	switch {
	case fromFlag != "" || toFlag != "":
		if fromFlag == "" || toFlag == "" {
			return fmt.Errorf("--from and --to must be given together")
		}
		from, err := time.Parse("2006-01-02", fromFlag)
		if err != nil {
			return fmt.Errorf("invalid --from date %q: expected YYYY-MM-DD", fromFlag)
		}
		to, err := time.Parse("2006-01-02", toFlag)
		if err != nil {
			return fmt.Errorf("invalid --to date %q: expected YYYY-MM-DD", toFlag)
		}
		receipts, err = a.repo.FindByPeriod(ctx, from, to)
		if err != nil {
			return err
		}
	case directionFlag != "":
		direction, err := models.ParseDirection(directionFlag)
		if err != nil {
			return err
		}
		receipts, err = a.repo.FindByDirection(ctx, direction)
		if err != nil {
			return err
		}
	case categoryFlag != "":
		receipts, err = a.repo.FindByCategory(ctx, models.NormalizeCategory(categoryFlag))
		if err != nil {
			return err
		}
	default:
		receipts, err = a.repo.ListAll(ctx)
		if err != nil {
			return err
		}
	}

	if len(receipts) == 0 {
		fmt.Println("No receipts stored.")
		return nil
	}

	for _, r := range receipts {
		date := "          "
		if r.Date != nil {
			date = r.Date.Format("2006-01-02")
		}
		total := "        "
		if r.TotalAmount != nil {
			total = fmt.Sprintf("%8.2f", float64(*r.TotalAmount)/100)
		}
		fmt.Printf("%s  %s  %-8s  %s EUR  %-16s  %s\n",
			shortID(r.ID), date, r.Direction, total, r.Category, r.Number)
	}
	fmt.Printf("\n%d receipts\n", len(receipts))
	return nil
}

func runReceiptsShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	receipt, err := a.repo.Get(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(receipt, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal receipt: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Receipt %s\n", receipt.ID)
	fmt.Printf("  Direction : %s\n", receipt.Direction)
	if receipt.Number != "" {
		fmt.Printf("  Number    : %s\n", receipt.Number)
	}
	if receipt.Date != nil {
		fmt.Printf("  Date      : %s\n", receipt.Date.Format("2006-01-02"))
	}
	if receipt.Counterparty != nil {
		fmt.Printf("  Party     : %s\n", receipt.Counterparty.Name)
	}
	if receipt.TotalAmount != nil {
		fmt.Printf("  Total     : %.2f EUR\n", float64(*receipt.TotalAmount)/100)
	}
	if receipt.VATAmount != nil {
		fmt.Printf("  VAT       : %.2f EUR\n", float64(*receipt.VATAmount)/100)
	}
	if receipt.NetAmount != nil {
		fmt.Printf("  Net       : %.2f EUR\n", float64(*receipt.NetAmount)/100)
	}
	fmt.Printf("  Category  : %s\n", receipt.Category)

	suggestion := booking.Suggest(receipt)
	fmt.Printf("  SKR03     : %s %s (Steuerschlüssel %s)\n",
		suggestion.Account, suggestion.AccountName, suggestion.TaxKey)

	for _, item := range receipt.Items {
		line := fmt.Sprintf("  #%d %s", item.Position, item.Description)
		if item.TotalPrice != nil {
			line += fmt.Sprintf("  %.2f EUR", float64(*item.TotalPrice)/100)
		}
		fmt.Println(line)
	}
	for _, split := range receipt.VATSplits {
		if split.VATAmount != nil {
			fmt.Printf("  VAT %.1f%%: %.2f EUR\n", split.Rate, float64(*split.VATAmount)/100)
		}
	}
	return nil
}

func runReceiptsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.repo.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted receipt %s\n", args[0])
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
