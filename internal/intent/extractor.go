package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/llm"
	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/prompts"
)

// DefaultModelTimeout bounds a single model-assisted extraction.
const DefaultModelTimeout = 8 * time.Second

// ModelExtractor asks a language model to classify a message. It makes
// exactly one call per message; the caller decides what to do on failure.
type ModelExtractor struct {
	client  llm.Client
	model   string
	schema  []prompts.ActionSchema
	timeout time.Duration
}

func NewModelExtractor(client llm.Client, model string, schema []prompts.ActionSchema, timeout time.Duration) *ModelExtractor {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &ModelExtractor{
		client:  client,
		model:   model,
		schema:  schema,
		timeout: timeout,
	}
}

func (m *ModelExtractor) Extract(ctx context.Context, text string) (models.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	content, err := m.client.Generate(ctx, prompts.BuildIntentPrompt(m.schema, text), m.model)
	if err != nil {
		return models.Intent{}, fmt.Errorf("intent model call failed: %w", err)
	}

	parsed, err := prompts.ParseIntentResponse(content)
	if err != nil {
		return models.Intent{}, fmt.Errorf("intent model response rejected: %w", err)
	}
	return parsed, nil
}

// SchemaFromCatalog describes every catalog entry for the intent prompt.
func SchemaFromCatalog(c *actions.Catalog) []prompts.ActionSchema {
	entries := c.Entries()
	schema := make([]prompts.ActionSchema, 0, len(entries))
	for _, e := range entries {
		schema = append(schema, prompts.ActionSchema{Kind: e.Kind, Parameters: e.ParamNames()})
	}
	return schema
}

// Extractor turns free text into an Intent. It never fails: without a model,
// or when the model misbehaves, the keyword heuristic decides.
type Extractor struct {
	model     *ModelExtractor
	heuristic *Heuristic
	logger    *zap.Logger
}

// NewExtractor composes the two strategies. model may be nil.
func NewExtractor(model *ModelExtractor, heuristic *Heuristic, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		model:     model,
		heuristic: heuristic,
		logger:    logger.Named("intent"),
	}
}

func (e *Extractor) Extract(ctx context.Context, text string) models.Intent {
	if strings.TrimSpace(text) == "" {
		return models.GeneralIntent()
	}
	if e.model != nil {
		parsed, err := e.model.Extract(ctx, text)
		if err == nil {
			e.logger.Debug("model intent", zap.String("kind", string(parsed.Kind)))
			return parsed
		}
		e.logger.Warn("model intent extraction failed, using heuristic", zap.Error(err))
	}

	parsed := e.heuristic.Extract(text)
	e.logger.Debug("heuristic intent", zap.String("kind", string(parsed.Kind)))
	return parsed
}

// UsesModel reports whether model-assisted extraction is active.
func (e *Extractor) UsesModel() bool {
	return e.model != nil
}
