// Package toolserver exposes the action catalog as tools over the Model
// Context Protocol so assistants can drive the website directly.
package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/dispatch"
)

type Server struct {
	mcp        *server.MCPServer
	dispatcher *dispatch.Dispatcher
	tools      []mcp.Tool
	logger     *zap.Logger
}

func New(dispatcher *dispatch.Dispatcher, name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp:        server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		dispatcher: dispatcher,
		logger:     logger.Named("toolserver"),
	}
	for _, entry := range dispatcher.Catalog().Entries() {
		tool := ToolFor(entry)
		s.tools = append(s.tools, tool)
		s.mcp.AddTool(tool, s.handle)
	}
	return s
}

// Tools returns the registered tool definitions in catalog order.
func (s *Server) Tools() []mcp.Tool {
	return s.tools
}

// ToolFor builds the tool definition for a catalog entry.
func ToolFor(entry actions.Entry) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(entry.Description)}
	for _, spec := range entry.Params {
		opts = append(opts, paramOption(spec))
	}
	return mcp.NewTool(entry.ToolName, opts...)
}

func paramOption(spec actions.ParamSpec) mcp.ToolOption {
	var props []mcp.PropertyOption
	if spec.Description != "" {
		props = append(props, mcp.Description(spec.Description))
	}
	if spec.Required {
		props = append(props, mcp.Required())
	}
	if len(spec.Enum) > 0 {
		props = append(props, mcp.Enum(spec.Enum...))
	}
	if spec.Min != nil {
		props = append(props, mcp.Min(*spec.Min))
	}
	if spec.Max != nil {
		props = append(props, mcp.Max(*spec.Max))
	}

	switch spec.Type {
	case actions.TypeNumber:
		if v, ok := spec.Default.(float64); ok {
			props = append(props, mcp.DefaultNumber(v))
		}
		return mcp.WithNumber(spec.Name, props...)
	case actions.TypeBoolean:
		if v, ok := spec.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(v))
		}
		return mcp.WithBoolean(spec.Name, props...)
	case actions.TypeArray:
		props = append(props, mcp.Items(map[string]any{"type": "string"}))
		return mcp.WithArray(spec.Name, props...)
	case actions.TypeObject:
		return mcp.WithObject(spec.Name, props...)
	default:
		if v, ok := spec.Default.(string); ok && v != "" {
			props = append(props, mcp.DefaultString(v))
		}
		return mcp.WithString(spec.Name, props...)
	}
}

func (s *Server) handle(_ context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
	name := req.Params.Name
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool handler panicked", zap.String("tool", name), zap.Any("panic", r))
			result, err = mcp.NewToolResultError(fmt.Sprintf("Error executing %s", name)), nil
		}
	}()

	resp, err := s.dispatcher.DispatchTool(name, req.GetArguments())
	if err != nil {
		var unknown *dispatch.UnknownToolError
		if errors.As(err, &unknown) {
			s.logger.Warn("unknown tool requested", zap.String("tool", name))
			return mcp.NewToolResultError(fmt.Sprintf("Unknown tool: %s", name)), nil
		}
		return nil, err
	}

	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: %v", name, err)), nil
	}
	s.logger.Debug("tool call served", zap.String("tool", name))
	return mcp.NewToolResultText(string(body)), nil
}

// ServeStdio serves the protocol on in/out until ctx is cancelled or in is
// closed. Logs must not go to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	s.logger.Info("tool server running on stdio", zap.Int("tools", len(s.tools)))
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
