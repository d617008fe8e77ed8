package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// AnthropicProvider talks to Claude through langchaingo.
type AnthropicProvider struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

func NewAnthropicProvider(apiKey string, temperature float64, maxTokens int) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	model, err := anthropic.New(anthropic.WithToken(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return newAnthropicProvider(model, temperature, maxTokens), nil
}

func newAnthropicProvider(model llms.Model, temperature float64, maxTokens int) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicProvider{
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (a *AnthropicProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt,
		llms.WithModel(model),
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		// langchaingo only exposes the API status through the error text.
		if looksOverloaded(err) {
			return "", &OverloadedError{Provider: ProviderAnthropic, StatusCode: 529, Err: err}
		}
		return "", fmt.Errorf("anthropic generate: %w", err)
	}
	return text, nil
}
