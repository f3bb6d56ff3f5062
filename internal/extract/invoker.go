package extract

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"finanzamt/internal/llm"
	"finanzamt/internal/logger"
)

// InvokerConfig holds the retry and generation settings shared by all
// stages. All four stages use the same model; temperature defaults to 0 for
// deterministic JSON output.
type InvokerConfig struct {
	MaxRetries   int           // attempts per stage (minimum 1)
	StageTimeout time.Duration // wall clock per stage, not per attempt
	RetryBackoff time.Duration // pause between attempts
	Params       llm.GenerationParams
}

// DefaultInvokerConfig returns settings tuned for small local models.
func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{
		MaxRetries:   2,
		StageTimeout: 60 * time.Second,
		RetryBackoff: time.Second,
		Params: llm.GenerationParams{
			Temperature: 0,
			TopP:        1,
			MaxTokens:   2048,
		},
	}
}

// Invoker wraps one extraction request: it builds the stage prompt, sends
// it to the model collaborator, parses the response as JSON against the
// stage's expected shape, and retries with backoff on failure. Every
// attempt's prompt, raw response and parsed result are preserved through
// the trace sink.
type Invoker struct {
	client llm.Client
	sink   TraceSink
	config InvokerConfig
	log    zerolog.Logger
}

// NewInvoker creates an invoker with explicit dependencies.
func NewInvoker(client llm.Client, sink TraceSink, config InvokerConfig) *Invoker {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if sink == nil {
		sink = NopTraceSink{}
	}
	return &Invoker{
		client: client,
		sink:   sink,
		config: config,
		log:    logger.WithComponent("invoker"),
	}
}

// Invoke runs one stage against the model and returns the parsed JSON
// object. The same prompt is reused across attempts. A stage timeout or
// retry exhaustion yields a *StageError wrapping the last cause; the caller
// decides whether the document degrades or fails.
func (inv *Invoker) Invoke(ctx context.Context, receiptID string, stage Stage, prompt string) (map[string]any, error) {
	stageCtx, cancel := context.WithTimeout(ctx, inv.config.StageTimeout)
	defer cancel()

	inv.sink.RecordPrompt(receiptID, stage, prompt)

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(inv.config.RetryBackoff),
		uint64(inv.config.MaxRetries-1),
	)

	attempt := 0
	var lastErr error
	var parsed map[string]any

	operation := func() error {
		attempt++

		raw, err := inv.client.Generate(stageCtx, prompt, inv.config.Params)
		if err != nil {
			lastErr = err
			inv.log.Warn().
				Err(err).
				Str("receipt_id", receiptID).
				Str("stage", stage.String()).
				Int("attempt", attempt).
				Int("max_retries", inv.config.MaxRetries).
				Msg("Model request failed, retrying")
			if stageCtx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		inv.sink.RecordResponse(receiptID, stage, attempt, raw)

		obj, err := extractJSONObject(raw, stage.ExpectedKeys())
		if err != nil {
			lastErr = err
			inv.log.Warn().
				Err(err).
				Str("receipt_id", receiptID).
				Str("stage", stage.String()).
				Int("attempt", attempt).
				Msg("Failed to parse model response, retrying")
			return err
		}

		if !hasAnyKey(obj, stage.ExpectedKeys()) {
			lastErr = ErrMissingKeys
			inv.log.Warn().
				Str("receipt_id", receiptID).
				Str("stage", stage.String()).
				Int("attempt", attempt).
				Msg("Parsed response has none of the expected keys, retrying")
			return ErrMissingKeys
		}

		parsed = obj
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, stageCtx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, &StageError{Stage: stage, Attempts: attempt, Err: lastErr}
	}

	inv.sink.RecordParsed(receiptID, stage, parsed)

	inv.log.Debug().
		Str("receipt_id", receiptID).
		Str("stage", stage.String()).
		Int("attempt", attempt).
		Msg("Stage extraction succeeded")

	return parsed, nil
}

func hasAnyKey(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
