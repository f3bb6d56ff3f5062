package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"finanzamt/internal/logger"
	"finanzamt/pkg/models"
)

// State is a named state of the orchestration machine. One state per stage
// plus the two terminals, so the partial-result policy (continue on stage
// failure, abort only on cancellation) is a first-class transition rule
// rather than implicit control flow.
type State string

const (
	StateMetadata     State = "metadata"
	StateCounterparty State = "counterparty"
	StateAmounts      State = "amounts"
	StateLineItems    State = "line_items"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// stateFor maps a stage to its machine state.
func stateFor(stage Stage) State { return State(stage) }

// Controller sequences the four extraction stages for one document.
//
// Stages run strictly in sequence — the ordering exists to keep each prompt
// small and reliable for local models, not because any stage's output feeds
// another's prompt. A stage that exhausts its retries records an empty
// partial and the machine advances: a partially-filled receipt is more
// useful to a user than none.
type Controller struct {
	invoker *Invoker
	log     zerolog.Logger

	// state is the machine's current position; exposed for tests and
	// progress reporting, mutated only by Run.
	state State
}

// NewController creates a controller around an invoker.
func NewController(invoker *Invoker) *Controller {
	return &Controller{
		invoker: invoker,
		log:     logger.WithComponent("controller"),
		state:   StateMetadata,
	}
}

// State returns the machine's current state.
func (c *Controller) State() State { return c.state }

// Run drives the machine from metadata to done and returns the bundle of
// four partial results. The only way to reach the failed terminal is
// context cancellation between stages; per-stage failures degrade, never
// abort. At least one partial may be entirely absent.
func (c *Controller) Run(ctx context.Context, receiptID, rawText string, direction models.Direction) (*Bundle, error) {
	start := time.Now()
	bundle := &Bundle{Failures: make(map[Stage]error)}

	for _, stage := range StageOrder {
		c.state = stateFor(stage)

		if err := ctx.Err(); err != nil {
			c.state = StateFailed
			return nil, err
		}

		prompt := BuildPrompt(stage, rawText, direction)
		raw, err := c.invoker.Invoke(ctx, receiptID, stage, prompt)
		if err != nil {
			// Retry exhaustion and stage timeout are treated identically:
			// record the failure, keep the partial empty, advance.
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				stageErr = &StageError{Stage: stage, Attempts: 1, Err: err}
			}
			bundle.Failures[stage] = stageErr
			c.log.Warn().
				Err(stageErr).
				Str("receipt_id", receiptID).
				Str("stage", stage.String()).
				Msg("Stage produced no result, continuing with partial data")
			continue
		}

		switch stage {
		case StageMetadata:
			bundle.Metadata = coerceMetadata(raw)
		case StageCounterparty:
			bundle.Counterparty = coerceCounterparty(raw)
		case StageAmounts:
			bundle.Amounts = coerceAmounts(raw)
		case StageLineItems:
			bundle.Items = coerceItems(raw)
		}
	}

	c.state = StateDone
	bundle.Elapsed = time.Since(start)

	c.log.Info().
		Str("receipt_id", receiptID).
		Int("failed_stages", len(bundle.Failures)).
		Dur("elapsed", bundle.Elapsed).
		Msg("Extraction pipeline completed")

	return bundle, nil
}
