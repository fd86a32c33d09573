package metadata

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"tweetpress/pkg/errors"
)

// Completer is the text-generation service contract the generator depends
// on. Implementations return the raw completion text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter talks to an OpenAI-compatible chat completion endpoint
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a completer against baseURL with the given
// model
func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends a single-user-message chat request and returns the first
// choice's content.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", errors.NewBaseError(errors.ErrorTypeMetadata, "completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewCompletionMalformed("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
