package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrOverloaded marks a transient "service overloaded" failure that is worth retrying.
var ErrOverloaded = errors.New("llm: model overloaded")

// Client is the contract every language-model provider satisfies.
// Implementations must be safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Provider names accepted by New.
const (
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"
)

// OverloadedError wraps a provider error that signalled overload.
type OverloadedError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *OverloadedError) Error() string {
	return fmt.Sprintf("%s overloaded (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *OverloadedError) Unwrap() error { return e.Err }

func (e *OverloadedError) Is(target error) bool { return target == ErrOverloaded }

// IsOverloaded reports whether err is a retryable overload failure.
func IsOverloaded(err error) bool {
	return errors.Is(err, ErrOverloaded)
}

// overloadStatus reports whether an HTTP status code means "try again later".
func overloadStatus(code int) bool {
	return code == 429 || code == 503 || code == 529
}

// looksOverloaded is the last resort for SDKs that only surface error text.
func looksOverloaded(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "529") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "rate limit")
}

// Options configure New.
type Options struct {
	Provider    string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// New builds the client for opts.Provider. It returns (nil, nil) for the
// "none" provider so callers can run heuristic-only.
func New(ctx context.Context, opts Options) (Client, error) {
	var (
		client Client
		err    error
	)
	switch strings.ToLower(opts.Provider) {
	case ProviderNone, "":
		return nil, nil
	case ProviderGoogle:
		client, err = NewGoogleProvider(ctx, opts.APIKey, opts.Temperature)
	case ProviderAnthropic:
		client, err = NewAnthropicProvider(opts.APIKey, opts.Temperature, opts.MaxTokens)
	case ProviderOpenAI:
		client, err = NewOpenAIProvider(opts.APIKey, opts.Temperature, opts.MaxTokens)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// DefaultModels returns the primary and secondary model names for a provider.
func DefaultModels(provider string) (primary, secondary string) {
	switch strings.ToLower(provider) {
	case ProviderAnthropic:
		return "claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"
	case ProviderOpenAI:
		return "gpt-4o-mini", "gpt-4o-mini"
	default:
		return "gemini-2.0-flash", "gemini-1.5-flash"
	}
}
