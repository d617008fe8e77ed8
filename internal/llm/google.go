package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GoogleProvider calls Gemini models through the genai SDK.
type GoogleProvider struct {
	client      *genai.Client
	temperature float32
}

func NewGoogleProvider(ctx context.Context, apiKey string, temperature float64) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GoogleProvider{client: client, temperature: float32(temperature)}, nil
}

func (g *GoogleProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](g.temperature),
	})
	if err != nil {
		return "", classifyGoogleError(err)
	}
	return resp.Text(), nil
}

func classifyGoogleError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if overloadStatus(apiErr.Code) {
			return &OverloadedError{Provider: ProviderGoogle, StatusCode: apiErr.Code, Err: err}
		}
		return fmt.Errorf("gemini generate (status %d): %w", apiErr.Code, err)
	}
	return fmt.Errorf("gemini generate: %w", err)
}
