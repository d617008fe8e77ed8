package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Empty variables count as unset.
	for _, key := range []string{"LLM_PROVIDER", "GOOGLE_API_KEY", "HTTP_ADDR", "NATS_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "monastery360-agent", cfg.ServiceName)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "monastery.agent.chat", cfg.NatsRequestSubject)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.SessionMaxMessages)
	assert.Equal(t, "gemini-2.0-flash", cfg.PrimaryModel)
	assert.Equal(t, "gemini-1.5-flash", cfg.SecondaryModel)
	assert.Equal(t, 0.7, cfg.LLMTemperature)
	assert.True(t, cfg.IntentModelEnabled)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Empty(t, cfg.NatsURL)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.ModelEnabled(), "no key means no model")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("HTTP_ADDR", ":8088")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("INTENT_MODEL_ENABLED", "false")
	t.Setenv("SESSION_MAX_MESSAGES", "8")
	t.Setenv("LLM_SECONDARY_MODEL", "claude-3-haiku-20240307")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.True(t, cfg.ModelEnabled())
	assert.Equal(t, ":8088", cfg.HTTPAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.False(t, cfg.IntentModelEnabled)
	assert.Equal(t, 8, cfg.SessionMaxMessages)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.PrimaryModel)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.SecondaryModel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "LLM_PROVIDER", "mistral"},
		{"zero rate limit", "RATE_LIMIT_PER_MIN", "0"},
		{"non-numeric rate limit", "RATE_LIMIT_PER_MIN", "lots"},
		{"zero attempts", "RETRY_MAX_ATTEMPTS", "0"},
		{"too many attempts", "RETRY_MAX_ATTEMPTS", "11"},
		{"absurd attempts", "RETRY_MAX_ATTEMPTS", "100000"},
		{"temperature too hot", "LLM_TEMPERATURE", "3.5"},
		{"negative timeout", "LLM_TIMEOUT", "-1s"},
		{"bad duration", "SESSION_TTL", "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", "google")
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNoneProviderDisablesModel(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("GOOGLE_API_KEY", "set-but-unused")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ModelEnabled())
	assert.Empty(t, cfg.APIKey())
}
