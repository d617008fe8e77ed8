package handlers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/conversation"
	"github.com/monastery360/agent/internal/dispatch"
	"github.com/monastery360/agent/internal/intent"
	"github.com/monastery360/agent/internal/memory"
	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/prompts"
)

// Agent is the message pipeline shared by every transport. It is safe for
// concurrent use.
type Agent struct {
	extractor    *intent.Extractor
	dispatcher   *dispatch.Dispatcher
	conversation *conversation.Fallback
	memory       *memory.Manager
	logger       *zap.Logger
}

// NewAgent wires the pipeline. mem may be nil, in which case sessions are
// not remembered.
func NewAgent(
	extractor *intent.Extractor,
	dispatcher *dispatch.Dispatcher,
	fallback *conversation.Fallback,
	mem *memory.Manager,
	logger *zap.Logger,
) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		extractor:    extractor,
		dispatcher:   dispatcher,
		conversation: fallback,
		memory:       mem,
		logger:       logger.Named("agent"),
	}
}

// HandleMessage maps one visitor message to a reply. It never returns nil
// and never panics; an internal failure yields the apologetic reply.
func (a *Agent) HandleMessage(ctx context.Context, req models.ChatRequest) (resp *models.AgentResponse) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic while handling message",
				zap.String("session_id", req.SessionID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			resp = models.Conversational(prompts.ErrorMessage)
		}
		resp = normalize(resp)
	}()

	text := strings.TrimSpace(req.Message)
	parsed := a.extractor.Extract(ctx, text)
	logger := a.logger.With(
		zap.String("session_id", req.SessionID),
		zap.String("kind", string(parsed.Kind)))

	if parsed.Kind != models.KindGeneral {
		if out, ok := a.dispatcher.Dispatch(parsed); ok {
			logger.Info("message handled by action")
			a.remember(ctx, req, text, out.Message)
			return out
		}
		logger.Warn("no handler for intent, falling back to conversation")
	}

	out := a.conversation.Converse(ctx, text, a.history(ctx, req.SessionID))
	logger.Info("message handled by conversation")
	a.remember(ctx, req, text, out.Message)
	return out
}

// Catalog lists the actions the agent can perform.
func (a *Agent) Catalog() *actions.Catalog {
	return a.dispatcher.Catalog()
}

// Dispatcher exposes direct tool dispatch for the tool protocol.
func (a *Agent) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

func (a *Agent) history(ctx context.Context, sessionID string) string {
	if a.memory == nil || sessionID == "" {
		return ""
	}
	history, err := a.memory.FormattedHistory(ctx, sessionID)
	if err != nil {
		a.logger.Warn("failed to load history", zap.String("session_id", sessionID), zap.Error(err))
		return ""
	}
	return history
}

func (a *Agent) remember(ctx context.Context, req models.ChatRequest, text, reply string) {
	if a.memory == nil || req.SessionID == "" || text == "" {
		return
	}
	if err := a.memory.RecordTurn(ctx, req.SessionID, req.UserID, text, reply); err != nil {
		a.logger.Warn("failed to record turn", zap.String("session_id", req.SessionID), zap.Error(err))
	}
}

// normalize enforces the response shape: a non-empty message, and action and
// target either both set or both unset.
func normalize(resp *models.AgentResponse) *models.AgentResponse {
	if resp == nil {
		return models.Conversational(prompts.ErrorMessage)
	}
	if strings.TrimSpace(resp.Message) == "" {
		resp.Message = prompts.GreetingMessage
	}
	if resp.Action == nil {
		resp.Target = nil
	} else if resp.Target == nil || *resp.Target == "" {
		root := "/"
		resp.Target = &root
	}
	return resp
}
