package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/monastery360/agent/internal/config"
	"github.com/monastery360/agent/internal/llm"
	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/prompts"
)

func heuristicOnlyConfig() *config.Config {
	return &config.Config{
		LLMProvider:        llm.ProviderNone,
		SessionTTL:         time.Minute,
		SessionMaxMessages: 10,
		IntentModelEnabled: true,
		IntentTimeout:      time.Second,
		LLMTimeout:         time.Second,
		RetryMaxAttempts:   3,
		RetryBaseDelay:     time.Millisecond,
	}
}

func TestBuildHeuristicOnly(t *testing.T) {
	a, err := Build(context.Background(), heuristicOnlyConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	resp := a.Agent.HandleMessage(context.Background(), models.ChatRequest{
		Message:   "Book 2 tickets for Rumtek",
		SessionID: "s1",
	})
	require.NotNil(t, resp.Action)
	assert.Equal(t, models.KindBook, *resp.Action)

	resp = a.Agent.HandleMessage(context.Background(), models.ChatRequest{Message: "tell me a story", SessionID: "s1"})
	assert.Nil(t, resp.Action)
	assert.Equal(t, prompts.StaticFallbackMessage, resp.Message)

	msgs, err := a.Memory.Messages(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
	assert.NoError(t, a.Health(context.Background()))
}

func TestBuildMissingKeyDisablesModel(t *testing.T) {
	cfg := heuristicOnlyConfig()
	cfg.LLMProvider = llm.ProviderGoogle

	a, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Dispatcher.Catalog().Entries(), 12)
}

func TestBuildRejectsUnreachableRedis(t *testing.T) {
	cfg := heuristicOnlyConfig()
	cfg.RedisURL = "not-a-redis-url"

	_, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "Redis")
}
