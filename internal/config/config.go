package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/monastery360/agent/internal/llm"
)

// MaxRetryAttempts bounds RETRY_MAX_ATTEMPTS.
const MaxRetryAttempts = 10

type Config struct {
	// Service configuration
	ServiceName string `mapstructure:"SERVICE_NAME"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// HTTP configuration
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	RateLimitPerMin int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	// NATS configuration; an empty URL disables the transport
	NatsURL            string        `mapstructure:"NATS_URL"`
	NatsRequestSubject string        `mapstructure:"NATS_REQUEST_SUBJECT"`
	NatsTimeout        time.Duration `mapstructure:"NATS_TIMEOUT"`
	NatsMaxConcurrent  int           `mapstructure:"NATS_MAX_CONCURRENT"`

	// Session memory; an empty Redis URL keeps sessions in process
	RedisURL           string        `mapstructure:"REDIS_URL"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	SessionMaxMessages int           `mapstructure:"SESSION_MAX_MESSAGES"`

	// Model configuration
	LLMProvider     string        `mapstructure:"LLM_PROVIDER"`
	GoogleAPIKey    string        `mapstructure:"GOOGLE_API_KEY"`
	AnthropicAPIKey string        `mapstructure:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `mapstructure:"OPENAI_API_KEY"`
	PrimaryModel    string        `mapstructure:"LLM_PRIMARY_MODEL"`
	SecondaryModel  string        `mapstructure:"LLM_SECONDARY_MODEL"`
	LLMTimeout      time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMTemperature  float64       `mapstructure:"LLM_TEMPERATURE"`

	IntentModelEnabled bool          `mapstructure:"INTENT_MODEL_ENABLED"`
	IntentTimeout      time.Duration `mapstructure:"INTENT_TIMEOUT"`

	RetryMaxAttempts int           `mapstructure:"RETRY_MAX_ATTEMPTS"`
	RetryBaseDelay   time.Duration `mapstructure:"RETRY_BASE_DELAY"`
}

var defaults = map[string]any{
	"SERVICE_NAME": "monastery360-agent",
	"ENV":          "development",
	"LOG_LEVEL":    "info",

	"HTTP_ADDR":          ":5000",
	"RATE_LIMIT_PER_MIN": 120,
	"RATE_LIMIT_BURST":   20,
	"REQUEST_TIMEOUT":    "30s",

	"NATS_URL":             "",
	"NATS_REQUEST_SUBJECT": "monastery.agent.chat",
	"NATS_TIMEOUT":         "10s",
	"NATS_MAX_CONCURRENT":  32,

	"REDIS_URL":            "",
	"SESSION_TTL":          "30m",
	"SESSION_MAX_MESSAGES": 20,

	"LLM_PROVIDER":        llm.ProviderGoogle,
	"GOOGLE_API_KEY":      "",
	"ANTHROPIC_API_KEY":   "",
	"OPENAI_API_KEY":      "",
	"LLM_PRIMARY_MODEL":   "",
	"LLM_SECONDARY_MODEL": "",
	"LLM_TIMEOUT":         "20s",
	"LLM_TEMPERATURE":     0.7,

	"INTENT_MODEL_ENABLED": true,
	"INTENT_TIMEOUT":       "8s",

	"RETRY_MAX_ATTEMPTS": 3,
	"RETRY_BASE_DELAY":   "500ms",
}

// Load reads configuration from an optional config.yaml and the environment,
// environment taking precedence, then fills model defaults and validates.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	primary, secondary := llm.DefaultModels(cfg.LLMProvider)
	if cfg.PrimaryModel == "" {
		cfg.PrimaryModel = primary
	}
	if cfg.SecondaryModel == "" {
		cfg.SecondaryModel = secondary
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case llm.ProviderGoogle, llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be one of google, anthropic, openai, none; got %q", c.LLMProvider))
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.RateLimitPerMin <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MIN must be positive; got %d", c.RateLimitPerMin))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be positive; got %d", c.RateLimitBurst))
	}
	if c.NatsMaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("NATS_MAX_CONCURRENT must be positive; got %d", c.NatsMaxConcurrent))
	}
	if c.RetryMaxAttempts < 1 || c.RetryMaxAttempts > MaxRetryAttempts {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be within [1, %d]; got %d", MaxRetryAttempts, c.RetryMaxAttempts))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be within [0, 2]; got %v", c.LLMTemperature))
	}
	if c.SessionMaxMessages < 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_MESSAGES must not be negative; got %d", c.SessionMaxMessages))
	}
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":  c.RequestTimeout,
		"NATS_TIMEOUT":     c.NatsTimeout,
		"SESSION_TTL":      c.SessionTTL,
		"LLM_TIMEOUT":      c.LLMTimeout,
		"INTENT_TIMEOUT":   c.IntentTimeout,
		"RETRY_BASE_DELAY": c.RetryBaseDelay,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive; got %s", name, d))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case llm.ProviderGoogle:
		return c.GoogleAPIKey
	case llm.ProviderAnthropic:
		return c.AnthropicAPIKey
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

// ModelEnabled reports whether a provider is selected and has a key.
func (c *Config) ModelEnabled() bool {
	return c.LLMProvider != llm.ProviderNone && c.APIKey() != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
