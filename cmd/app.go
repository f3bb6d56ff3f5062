package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"finanzamt/internal/config"
	"finanzamt/internal/extract"
	"finanzamt/internal/llm"
	"finanzamt/internal/ocr"
	"finanzamt/internal/pipeline"
	"finanzamt/internal/storage"
)

// app bundles the wired collaborators a command needs. Commands construct
// one per invocation; nothing is shared at package level.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	repo      *storage.Repository
	processor *pipeline.Processor
}

// newApp loads configuration, opens the database and wires the pipeline.
// The --db flag overrides the configured database path.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	repo := storage.NewRepository(db)

	var sink extract.TraceSink
	if cfg.DebugDir != "" {
		sink = extract.NewDirTraceSink(cfg.DebugDir)
	}

	invoker := extract.NewInvoker(
		llm.NewOpenAIClient(cfg.ModelBaseURL, cfg.ModelAPIKey, cfg.ModelName),
		sink,
		extract.InvokerConfig{
			MaxRetries:   cfg.MaxRetries,
			StageTimeout: cfg.StageTimeout,
			RetryBackoff: extract.DefaultInvokerConfig().RetryBackoff,
			Params: llm.GenerationParams{
				Temperature: cfg.Temperature,
				TopP:        cfg.TopP,
				MaxTokens:   cfg.MaxTokens,
			},
		},
	)

	processor := pipeline.NewProcessor(pipeline.ProcessorDeps{
		Extractor: ocr.NewPDFTextExtractor(),
		Invoker:   invoker,
		Resolver:  storage.NewResolver(repo),
		Repo:      repo,
		Sink:      sink,
	})

	return &app{cfg: cfg, db: db, repo: repo, processor: processor}, nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM, so a long
// extraction run stops at the next stage boundary instead of being killed
// mid-transaction.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
