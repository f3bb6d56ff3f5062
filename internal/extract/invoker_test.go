package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzamt/internal/llm"
)

// scriptedClient returns canned responses (or errors) in call order.
type scriptedClient struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	text string
	err  error
}

func (c *scriptedClient) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= len(c.responses) {
		return "", errors.New("scripted client exhausted")
	}
	r := c.responses[c.calls]
	c.calls++
	return r.text, r.err
}

// recordingSink counts trace writes.
type recordingSink struct {
	mu        sync.Mutex
	prompts   int
	responses int
	parsed    int
	finals    int
}

func (s *recordingSink) RecordPrompt(string, Stage, string) {
	s.mu.Lock()
	s.prompts++
	s.mu.Unlock()
}

func (s *recordingSink) RecordResponse(string, Stage, int, string) {
	s.mu.Lock()
	s.responses++
	s.mu.Unlock()
}

func (s *recordingSink) RecordParsed(string, Stage, map[string]any) {
	s.mu.Lock()
	s.parsed++
	s.mu.Unlock()
}

func (s *recordingSink) RecordFinal(string, any) {
	s.mu.Lock()
	s.finals++
	s.mu.Unlock()
}

func testInvokerConfig() InvokerConfig {
	return InvokerConfig{
		MaxRetries:   2,
		StageTimeout: 5 * time.Second,
		RetryBackoff: time.Millisecond,
	}
}

func TestInvokerSucceedsFirstAttempt(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{text: `{"receipt_number": "R-1"}`},
	}}
	sink := &recordingSink{}
	inv := NewInvoker(client, sink, testInvokerConfig())

	obj, err := inv.Invoke(context.Background(), "rid", StageMetadata, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "R-1", obj["receipt_number"])
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, sink.prompts)
	assert.Equal(t, 1, sink.responses)
	assert.Equal(t, 1, sink.parsed)
}

func TestInvokerRetriesTransportError(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{err: llm.ErrModelUnreachable},
		{text: `{"receipt_number": "R-2"}`},
	}}
	inv := NewInvoker(client, nil, testInvokerConfig())

	obj, err := inv.Invoke(context.Background(), "rid", StageMetadata, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "R-2", obj["receipt_number"])
	assert.Equal(t, 2, client.calls)
}

func TestInvokerRetriesUnparseableResponse(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{text: "Sorry, I cannot help with that."},
		{text: `{"receipt_number": "R-3"}`},
	}}
	sink := &recordingSink{}
	inv := NewInvoker(client, sink, testInvokerConfig())

	obj, err := inv.Invoke(context.Background(), "rid", StageMetadata, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "R-3", obj["receipt_number"])
	// Both raw responses traced, only the final parse recorded.
	assert.Equal(t, 2, sink.responses)
	assert.Equal(t, 1, sink.parsed)
}

func TestInvokerRetriesWhenAllKeysMissing(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{text: `{"unrelated": true}`},
		{text: `{"receipt_date": "2026-01-01"}`},
	}}
	inv := NewInvoker(client, nil, testInvokerConfig())

	obj, err := inv.Invoke(context.Background(), "rid", StageMetadata, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", obj["receipt_date"])
}

func TestInvokerExhaustsRetries(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{text: "no json here"},
		{text: "still no json"},
		{text: `{"receipt_number": "never reached"}`},
	}}
	inv := NewInvoker(client, nil, testInvokerConfig())

	_, err := inv.Invoke(context.Background(), "rid", StageMetadata, "prompt")
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageMetadata, stageErr.Stage)
	assert.Equal(t, 2, stageErr.Attempts)
	assert.ErrorIs(t, err, ErrStageFailed)
	assert.ErrorIs(t, err, ErrNoJSON)
	assert.Equal(t, 2, client.calls) // MaxRetries bounds attempts
}

func TestInvokerStageTimeout(t *testing.T) {
	cfg := testInvokerConfig()
	cfg.StageTimeout = 10 * time.Millisecond

	slow := clientFunc(func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	inv := NewInvoker(slow, nil, cfg)

	_, err := inv.Invoke(context.Background(), "rid", StageMetadata, "prompt")
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// clientFunc adapts a function to llm.Client.
type clientFunc func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error)

func (f clientFunc) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return f(ctx, prompt, params)
}
