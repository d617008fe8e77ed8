package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/monastery360/agent/internal/llm"
	"github.com/monastery360/agent/internal/prompts"
	"github.com/monastery360/agent/internal/resilience"
)

type stubGenerator struct {
	out    string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.out, s.err
}

func TestConverseReturnsModelReply(t *testing.T) {
	gen := &stubGenerator{out: "  Rumtek is a lovely place to start.\n"}
	f := New(gen, zaptest.NewLogger(t))

	resp := f.Converse(context.Background(), "Where should I begin?", "User: hello\nAssistant: Tashi delek!\n")
	require.NotNil(t, resp)
	assert.Equal(t, "Rumtek is a lovely place to start.", resp.Message)
	assert.Nil(t, resp.Action)
	assert.Nil(t, resp.Target)

	assert.Contains(t, gen.prompt, "Previous conversation:")
	assert.Contains(t, gen.prompt, "Assistant: Tashi delek!")
	assert.Contains(t, gen.prompt, "Where should I begin?")
}

func TestConverseStaticFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"no generator", nil},
		{"generator error", &stubGenerator{err: errors.New("boom")}},
		{"exhausted", &stubGenerator{err: resilience.ErrExhausted}},
		{"blank output", &stubGenerator{out: " \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New(tt.gen, nil).Converse(context.Background(), "hello", "")
			assert.Equal(t, prompts.StaticFallbackMessage, resp.Message)
			assert.Nil(t, resp.Action)
			assert.Nil(t, resp.Target)
		})
	}
}

func TestConverseWithoutHistoryOmitsSection(t *testing.T) {
	gen := &stubGenerator{out: "ok"}
	New(gen, nil).Converse(context.Background(), "hello", "")
	assert.NotContains(t, gen.prompt, "Previous conversation:")
}

// overloadedClient fails every call the way a busy provider does.
type overloadedClient struct {
	mu     sync.Mutex
	models []string
}

func (c *overloadedClient) Generate(_ context.Context, _, model string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append(c.models, model)
	return "", &llm.OverloadedError{Provider: "anthropic", StatusCode: 529, Err: errors.New("overloaded_error")}
}

func TestConverseAfterRetriesExhausted(t *testing.T) {
	client := &overloadedClient{}
	var slept []time.Duration
	gen := resilience.New(client, resilience.Options{
		Primary: "primary",
		Policy: resilience.Policy{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Sleep: func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			},
		},
	}, zaptest.NewLogger(t))

	resp := New(gen, zaptest.NewLogger(t)).Converse(context.Background(), "Tell me about Rumtek", "")
	require.NotNil(t, resp)
	assert.Equal(t, prompts.StaticFallbackMessage, resp.Message)
	assert.Nil(t, resp.Action)

	assert.Equal(t, []string{"primary", "primary", "primary"}, client.models)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, slept)
	var total time.Duration
	for _, d := range slept {
		total += d
	}
	assert.Equal(t, 1500*time.Millisecond, total)
}
