// Package app assembles the agent pipeline from configuration. Both
// binaries share it so the HTTP service and the CLI behave identically.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/config"
	"github.com/monastery360/agent/internal/conversation"
	"github.com/monastery360/agent/internal/dispatch"
	"github.com/monastery360/agent/internal/handlers"
	"github.com/monastery360/agent/internal/intent"
	"github.com/monastery360/agent/internal/llm"
	"github.com/monastery360/agent/internal/memory"
	"github.com/monastery360/agent/internal/resilience"
)

const maxOutputTokens = 1024

// App holds the wired components.
type App struct {
	Config     *config.Config
	Agent      *handlers.Agent
	Dispatcher *dispatch.Dispatcher
	Memory     *memory.Manager
	logger     *zap.Logger
}

// Build wires the pipeline. A missing API key is not an error: the agent
// then runs on the heuristic extractor and static replies.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := newClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	catalog := actions.New()
	dispatcher := dispatch.New(catalog, logger)

	var model *intent.ModelExtractor
	if client != nil && cfg.IntentModelEnabled {
		model = intent.NewModelExtractor(client, cfg.PrimaryModel, intent.SchemaFromCatalog(catalog), cfg.IntentTimeout)
	}
	extractor := intent.NewExtractor(model, intent.NewHeuristic(actions.MonasteryIDs(catalog.Directory())), logger)

	var generator conversation.Generator
	if client != nil {
		generator = resilience.New(client, resilience.Options{
			Primary:     cfg.PrimaryModel,
			Secondary:   cfg.SecondaryModel,
			CallTimeout: cfg.LLMTimeout,
			Policy: resilience.Policy{
				MaxAttempts: cfg.RetryMaxAttempts,
				BaseDelay:   cfg.RetryBaseDelay,
			},
		}, logger)
	}
	fallback := conversation.New(generator, logger)

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	mem := memory.NewManager(store, cfg.SessionMaxMessages, logger, memory.WithSessionTTL(cfg.SessionTTL))

	return &App{
		Config:     cfg,
		Agent:      handlers.NewAgent(extractor, dispatcher, fallback, mem, logger),
		Dispatcher: dispatcher,
		Memory:     mem,
		logger:     logger,
	}, nil
}

func newClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	if !cfg.ModelEnabled() {
		logger.Warn("no model configured, running heuristic-only",
			zap.String("provider", cfg.LLMProvider))
		return nil, nil
	}
	client, err := llm.New(ctx, llm.Options{
		Provider:    cfg.LLMProvider,
		APIKey:      cfg.APIKey(),
		Temperature: cfg.LLMTemperature,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.LLMProvider, err)
	}
	logger.Info("model provider initialized",
		zap.String("provider", cfg.LLMProvider),
		zap.String("primary", cfg.PrimaryModel),
		zap.String("secondary", cfg.SecondaryModel))
	return client, nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (memory.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("session memory kept in process", zap.Duration("ttl", cfg.SessionTTL))
		return memory.NewMemoryStore(cfg.SessionTTL, cfg.SessionMaxMessages), nil
	}
	store, err := memory.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL, cfg.SessionMaxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("session memory backed by Redis", zap.Duration("ttl", cfg.SessionTTL))
	return store, nil
}

// Health reports whether session storage is reachable.
func (a *App) Health(ctx context.Context) error {
	return a.Memory.Ping(ctx)
}

func (a *App) Close() error {
	a.logger.Info("closing", zap.Int("active_sessions", a.Memory.ActiveSessions()))
	if err := a.Memory.Close(); err != nil {
		return fmt.Errorf("failed to close session memory: %w", err)
	}
	return nil
}
