package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/app"
	"github.com/monastery360/agent/internal/config"
	"github.com/monastery360/agent/internal/logging"
)

const version = "1.0.0"

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "monastery-agent",
		Short:        "Monastery360 assistant tools",
		Long:         "Runs the Monastery360 intent-to-action agent as a tool-protocol server, answers single messages, or lists the available actions.",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newMCPCmd(), newAskCmd(), newToolsCmd())
	return root
}

// setup loads configuration and builds the pipeline with logs on stderr,
// keeping stdout for command output.
func setup(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.Stderr(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
