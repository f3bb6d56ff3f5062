// Package pipeline wires document ingestion end to end: text extraction,
// the staged model protocol, merge and validation, counterparty resolution
// and transactional persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finanzamt/internal/extract"
	"finanzamt/internal/logger"
	"finanzamt/internal/ocr"
	"finanzamt/internal/storage"
	"finanzamt/pkg/models"
)

// ErrEmptyText signals that a document produced no usable text. There is
// nothing to extract from and no identity to assign, so processing stops
// before any model call.
var ErrEmptyText = errors.New("document contains no extractable text")

// Result is the outcome of processing one document.
type Result struct {
	// Receipt is the stored (or, for duplicates, previously stored) record.
	Receipt *models.Receipt

	// Duplicate reports that a receipt with identical content already
	// existed. No model calls are made for duplicates detected up front.
	Duplicate bool

	// CounterpartyCreated reports that resolution found no match and made a
	// new unverified counterparty.
	CounterpartyCreated bool

	// Warnings are the soft validation findings: arithmetic mismatches,
	// split-sum drift, stages that produced no data.
	Warnings []string

	// SourcePath is the input file, empty when processing raw text.
	SourcePath string

	// Elapsed is the wall-clock processing time for this document.
	Elapsed time.Duration
}

// Processor runs the full ingestion flow. All collaborators are injected;
// the processor owns no connection or model state of its own and is safe
// for concurrent use.
type Processor struct {
	extractor ocr.TextExtractor
	invoker   *extract.Invoker
	merger    *extract.Merger
	resolver  *storage.Resolver
	repo      *storage.Repository
	sink      extract.TraceSink
	log       zerolog.Logger
}

// ProcessorDeps bundles the processor's collaborators.
type ProcessorDeps struct {
	Extractor ocr.TextExtractor
	Invoker   *extract.Invoker
	Resolver  *storage.Resolver
	Repo      *storage.Repository
	Sink      extract.TraceSink
}

// NewProcessor creates a processor with explicit dependencies. A nil sink
// disables tracing.
func NewProcessor(deps ProcessorDeps) *Processor {
	sink := deps.Sink
	if sink == nil {
		sink = extract.NopTraceSink{}
	}
	return &Processor{
		extractor: deps.Extractor,
		invoker:   deps.Invoker,
		merger:    extract.NewMerger(),
		resolver:  deps.Resolver,
		repo:      deps.Repo,
		sink:      sink,
		log:       logger.WithComponent("pipeline"),
	}
}

// ProcessFile extracts text from the document at path and processes it.
func (p *Processor) ProcessFile(ctx context.Context, path string, direction models.Direction) (*Result, error) {
	const op = "Processor.ProcessFile"

	text, err := p.extractor.ExtractTextFromFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := p.ProcessText(ctx, text, direction)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	result.SourcePath = path
	return result, nil
}

// ProcessText runs the ingestion flow on raw OCR text.
//
// The content hash is computed first and checked against storage before any
// model call: reprocessing a known document costs one lookup, not four model
// round trips. Stage failures degrade to warnings; only validation hard
// failures and infrastructure errors abort.
func (p *Processor) ProcessText(ctx context.Context, rawText string, direction models.Direction) (*Result, error) {
	const op = "Processor.ProcessText"
	start := time.Now()

	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyText)
	}

	receiptID := models.ContentID(rawText)
	log := p.log.With().Str("receipt_id", receiptID).Logger()

	exists, err := p.repo.Exists(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		log.Info().Msg("Duplicate content, skipping extraction")
		existing, err := p.repo.Get(ctx, receiptID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Result{Receipt: existing, Duplicate: true, Elapsed: time.Since(start)}, nil
	}

	controller := extract.NewController(p.invoker)
	bundle, err := controller.Run(ctx, receiptID, rawText, direction)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	receipt, warnings, err := p.merger.Merge(bundle, direction, rawText)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, stage := range bundle.FailedStages() {
		warnings = append(warnings, fmt.Sprintf("stage %s produced no data: %v", stage, bundle.Failures[stage]))
	}

	result := &Result{Receipt: receipt, Warnings: warnings}

	if receipt.Counterparty != nil {
		cp, created, err := p.resolver.Resolve(ctx, receipt.Counterparty)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		receipt.Counterparty = cp
		receipt.CounterpartyID = cp.ID
		result.CounterpartyCreated = created
	}

	p.sink.RecordFinal(receiptID, receipt)

	if err := p.repo.Save(ctx, receipt); err != nil {
		// A concurrent worker stored the same content between the up-front
		// check and the commit. Treat it as the duplicate outcome.
		if errors.Is(err, storage.ErrDuplicateReceipt) {
			log.Info().Msg("Duplicate content committed concurrently")
			result.Duplicate = true
			result.Elapsed = time.Since(start)
			return result, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result.Elapsed = time.Since(start)
	log.Info().
		Str("direction", direction.String()).
		Int("warnings", len(warnings)).
		Dur("elapsed", result.Elapsed).
		Msg("Document processed")
	return result, nil
}
