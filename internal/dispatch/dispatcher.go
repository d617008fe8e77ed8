package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/models"
)

// UnknownToolError is returned by DispatchTool for names missing from the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Dispatcher routes an Intent to its catalog handler.
type Dispatcher struct {
	catalog *actions.Catalog
	logger  *zap.Logger
}

func New(catalog *actions.Catalog, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		catalog: catalog,
		logger:  logger.Named("dispatch"),
	}
}

// Dispatch runs the handler for in.Kind. It returns false when the kind has
// no entry (general, or anything unregistered) so the caller can fall back
// to conversation.
func (d *Dispatcher) Dispatch(in models.Intent) (*models.AgentResponse, bool) {
	entry, ok := d.catalog.Lookup(in.Kind)
	if !ok {
		return nil, false
	}
	return d.run(entry, in.Parameters), true
}

// DispatchTool runs the entry registered under a tool-protocol name.
func (d *Dispatcher) DispatchTool(name string, args map[string]any) (*models.AgentResponse, error) {
	entry, ok := d.catalog.LookupTool(name)
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return d.run(entry, args), nil
}

// Catalog exposes the underlying catalog for transports that list tools.
func (d *Dispatcher) Catalog() *actions.Catalog {
	return d.catalog
}

func (d *Dispatcher) run(entry actions.Entry, params map[string]any) *models.AgentResponse {
	merged := actions.Params(entry.Defaults())
	for k, v := range params {
		if v != nil {
			merged[k] = v
		}
	}

	res := entry.Handler(merged)
	d.logger.Info("action dispatched",
		zap.String("kind", string(entry.Kind)),
		zap.String("target", res.Target))

	kind := entry.Kind
	target := res.Target
	if target == "" {
		target = "/"
	}
	return &models.AgentResponse{
		Message: res.Message,
		Action:  &kind,
		Target:  &target,
		Data:    res.Data,
	}
}
