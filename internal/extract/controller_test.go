package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzamt/internal/llm"
	"finanzamt/pkg/models"
)

// stageKeyedClient answers each stage based on its prompt content, so it
// works regardless of retry counts.
func stageKeyedClient(answers map[Stage]string) llm.Client {
	return clientFunc(func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		for _, stage := range StageOrder {
			if prompt == BuildPrompt(stage, testRawText, models.DirectionPurchase) {
				return answers[stage], nil
			}
		}
		return "", nil
	})
}

const testRawText = "Rechnung R-2026-001\nAcme GmbH\nGesamt: 119,00 EUR"

func fullAnswers() map[Stage]string {
	return map[Stage]string{
		StageMetadata:     `{"receipt_number": "R-2026-001", "receipt_date": "2026-01-15", "category": "software"}`,
		StageCounterparty: `{"name": "Acme GmbH", "vat_id": "DE123456789", "city": "Berlin"}`,
		StageAmounts:      `{"total_amount": 119.00, "vat_percentage": 19}`,
		StageLineItems:    `{"items": [{"description": "Lizenz", "quantity": 1, "unit_price": 119.00, "total_price": 119.00}]}`,
	}
}

func TestControllerRunsAllStages(t *testing.T) {
	client := stageKeyedClient(fullAnswers())
	controller := NewController(NewInvoker(client, nil, testInvokerConfig()))

	bundle, err := controller.Run(context.Background(), "rid", testRawText, models.DirectionPurchase)
	require.NoError(t, err)
	assert.Equal(t, StateDone, controller.State())
	assert.Empty(t, bundle.FailedStages())

	require.NotNil(t, bundle.Metadata)
	assert.Equal(t, "R-2026-001", bundle.Metadata.Number)
	assert.Equal(t, models.CategorySoftware, bundle.Metadata.Category)

	require.NotNil(t, bundle.Counterparty)
	assert.Equal(t, "DE123456789", bundle.Counterparty.VATID)

	require.NotNil(t, bundle.Amounts)
	assert.Equal(t, int64(11900), *bundle.Amounts.Total)

	require.NotNil(t, bundle.Items)
	require.Len(t, bundle.Items.Items, 1)
	assert.Equal(t, "Lizenz", bundle.Items.Items[0].Description)
}

func TestControllerDegradesOnStageFailure(t *testing.T) {
	answers := fullAnswers()
	answers[StageAmounts] = "the model refuses to answer with JSON"
	client := stageKeyedClient(answers)
	controller := NewController(NewInvoker(client, nil, testInvokerConfig()))

	bundle, err := controller.Run(context.Background(), "rid", testRawText, models.DirectionPurchase)
	require.NoError(t, err) // stage failure never aborts the document
	assert.Equal(t, StateDone, controller.State())

	require.Len(t, bundle.FailedStages(), 1)
	assert.Equal(t, StageAmounts, bundle.FailedStages()[0])
	assert.ErrorIs(t, bundle.Failures[StageAmounts], ErrStageFailed)

	// The stages around the failure still produced data.
	assert.Nil(t, bundle.Amounts)
	assert.NotNil(t, bundle.Metadata)
	assert.NotNil(t, bundle.Items)
}

func TestControllerAbortsOnCancellation(t *testing.T) {
	client := stageKeyedClient(fullAnswers())
	controller := NewController(NewInvoker(client, nil, testInvokerConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := controller.Run(ctx, "rid", testRawText, models.DirectionPurchase)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, controller.State())
}

func TestControllerRecordsElapsed(t *testing.T) {
	client := stageKeyedClient(fullAnswers())
	controller := NewController(NewInvoker(client, nil, testInvokerConfig()))

	start := time.Now()
	bundle, err := controller.Run(context.Background(), "rid", testRawText, models.DirectionPurchase)
	require.NoError(t, err)
	assert.Greater(t, bundle.Elapsed, time.Duration(0))
	assert.LessOrEqual(t, bundle.Elapsed, time.Since(start)+time.Millisecond)
}

func TestBuildPromptEmbedsDocumentAndTaxonomy(t *testing.T) {
	prompt := BuildPrompt(StageMetadata, testRawText, models.DirectionPurchase)
	assert.Contains(t, prompt, "R-2026-001")
	assert.Contains(t, prompt, string(models.CategoryOther))

	// The counterparty prompt targets the opposite party per direction.
	purchase := BuildPrompt(StageCounterparty, testRawText, models.DirectionPurchase)
	sale := BuildPrompt(StageCounterparty, testRawText, models.DirectionSale)
	assert.NotEqual(t, purchase, sale)
}

func TestBuildPromptTruncatesLongDocuments(t *testing.T) {
	long := strings.Repeat("Zeile mit Inhalt\n", 2000)
	prompt := BuildPrompt(StageAmounts, long, models.DirectionPurchase)
	assert.Less(t, len(prompt), len(long))
}
