package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finanzamt/internal/logger"
	"finanzamt/internal/pipeline"
	"finanzamt/pkg/models"
)

var processCmd = &cobra.Command{
	Use:   "process [document]",
	Short: "Extract and store one receipt document",
	Long: `Process a single receipt or invoice document (PDF or plain text).

The document's text is extracted, run through the staged model extraction,
validated, and stored. A document whose text content is already known is
reported as a duplicate and skipped without any model call.`,
	Example: `  # Process a purchase receipt (the default direction)
  finanzamt process receipt.pdf

  # Process an outgoing invoice
  finanzamt process invoice.pdf --type sale

  # Print the stored record as JSON
  finanzamt process receipt.pdf --json`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("type", "t", "purchase", "Receipt direction: purchase or sale")
	processCmd.Flags().Bool("json", false, "Print the stored receipt as JSON")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	directionFlag, _ := cmd.Flags().GetString("type")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	direction, err := models.ParseDirection(directionFlag)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info().
		Str("file", args[0]).
		Str("direction", direction.String()).
		Msg("Processing document")

	result, err := a.processor.ProcessFile(ctx, args[0], direction)
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(result.Receipt, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal receipt: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printResult(result)
	return nil
}

func printResult(result *pipeline.Result) {
	r := result.Receipt

	if result.Duplicate {
		fmt.Printf("Duplicate: identical content already stored as %s\n", r.ID)
		return
	}

	fmt.Printf("Stored receipt %s\n", r.ID)
	fmt.Printf("  Direction : %s\n", r.Direction)
	if r.Number != "" {
		fmt.Printf("  Number    : %s\n", r.Number)
	}
	if r.Date != nil {
		fmt.Printf("  Date      : %s\n", r.Date.Format("2006-01-02"))
	}
	if r.Counterparty != nil {
		marker := ""
		if result.CounterpartyCreated {
			marker = " (new, unverified)"
		}
		fmt.Printf("  Party     : %s%s\n", r.Counterparty.Name, marker)
	}
	if r.TotalAmount != nil {
		fmt.Printf("  Total     : %.2f EUR\n", float64(*r.TotalAmount)/100)
	}
	if r.VATAmount != nil {
		fmt.Printf("  VAT       : %.2f EUR\n", float64(*r.VATAmount)/100)
	}
	if r.NetAmount != nil {
		fmt.Printf("  Net       : %.2f EUR\n", float64(*r.NetAmount)/100)
	}
	fmt.Printf("  Category  : %s\n", r.Category)
	if len(r.Items) > 0 {
		fmt.Printf("  Items     : %d\n", len(r.Items))
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nProcessed in %s\n", result.Elapsed.Round(10*time.Millisecond))
}
