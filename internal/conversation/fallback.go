package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/prompts"
)

// Generator produces model output for a prompt. *resilience.Wrapper
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fallback answers messages that did not map onto an action.
type Fallback struct {
	generator Generator
	logger    *zap.Logger
}

// New builds a Fallback. generator may be nil, in which case every reply is
// the static greeting.
func New(generator Generator, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		generator: generator,
		logger:    logger.Named("conversation"),
	}
}

// Converse always returns a reply with no action attached.
func (f *Fallback) Converse(ctx context.Context, text, history string) *models.AgentResponse {
	if f.generator == nil {
		return models.Conversational(prompts.StaticFallbackMessage)
	}

	out, err := f.generator.Generate(ctx, prompts.BuildPersonaPrompt(history, text))
	if err != nil {
		f.logger.Warn("conversation model unavailable, using static reply", zap.Error(err))
		return models.Conversational(prompts.StaticFallbackMessage)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return models.Conversational(prompts.StaticFallbackMessage)
	}
	return models.Conversational(out)
}
