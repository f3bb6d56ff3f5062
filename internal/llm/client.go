// Package llm wraps the external language-model collaborator.
//
// The pipeline only needs "given a prompt, return a text response, possibly
// slow or failing". The bundled client speaks the OpenAI chat-completions
// protocol, which local model servers such as Ollama also expose, so the
// same code path serves both hosted and local models.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrModelUnreachable is returned when the model endpoint cannot be reached
// or returns no usable response. Transport-level, not content-level.
var ErrModelUnreachable = errors.New("model endpoint unreachable")

// GenerationParams are the stage-specific generation settings.
type GenerationParams struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Client is the model collaborator contract: text in, text out. No
// multimodal capability is assumed anywhere in the pipeline.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// OpenAIClient implements Client against any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for the given endpoint and model.
// For Ollama, baseURL is typically "http://localhost:11434/v1" and apiKey
// is any non-empty placeholder.
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Generate sends a single-turn completion request and returns the raw
// response text. The call blocks until the model answers or ctx expires;
// there is no mid-call cancellation beyond the context deadline.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	const op = "Generate"

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s failed: %w: %v", op, ErrModelUnreachable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: %s failed: %w: empty choices", op, ErrModelUnreachable)
	}

	return resp.Choices[0].Message.Content, nil
}
