package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"finanzamt/internal/logger"
	"finanzamt/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [directory or files...]",
	Short: "Process many receipt documents concurrently",
	Long: `Process a directory (or explicit list) of receipt documents with a
bounded worker pool. Duplicates are skipped, failures are reported per
file, and neither stops the rest of the batch.`,
	Example: `  # Process every PDF in a directory
  finanzamt batch ./receipts/

  # Sales invoices with four workers
  finanzamt batch ./invoices/ --type sale --workers 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("type", "t", "purchase", "Receipt direction: purchase or sale")
	batchCmd.Flags().IntP("workers", "w", 0, "Concurrent workers (default: from FINANZAMT_BATCH_WORKERS)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	directionFlag, _ := cmd.Flags().GetString("type")
	workers, _ := cmd.Flags().GetInt("workers")

	direction, err := models.ParseDirection(directionFlag)
	if err != nil {
		return err
	}

	paths, err := collectDocuments(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no processable documents found (supported: .pdf, .txt)")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = a.cfg.BatchWorkers
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info().
		Int("documents", len(paths)).
		Int("workers", workers).
		Str("direction", direction.String()).
		Msg("Starting batch")

	summary := a.processor.ProcessBatch(ctx, paths, direction, workers)

	for _, item := range summary.Items {
		switch {
		case item.Err != nil:
			fmt.Printf("FAIL  %s: %v\n", item.Path, item.Err)
		case item.Result.Duplicate:
			fmt.Printf("DUP   %s (stored as %s)\n", item.Path, item.Result.Receipt.ID)
		default:
			fmt.Printf("OK    %s -> %s\n", item.Path, item.Result.Receipt.ID)
			for _, w := range item.Result.Warnings {
				fmt.Printf("        warning: %s\n", w)
			}
		}
	}

	fmt.Printf("\n%d processed, %d duplicates, %d failed in %s\n",
		summary.Processed, summary.Duplicates, summary.Failed,
		summary.Elapsed.Round(10*time.Millisecond))

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, len(paths))
	}
	return nil
}

// collectDocuments expands directory arguments into their processable files
// (non-recursively) and passes explicit file arguments through.
func collectDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".pdf", ".txt":
				paths = append(paths, filepath.Join(arg, entry.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
