package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/monastery360/agent/internal/app"
	"github.com/monastery360/agent/internal/config"
	"github.com/monastery360/agent/internal/logging"
	"github.com/monastery360/agent/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting Monastery360 agent",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env))

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("error during cleanup", zap.Error(err))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	httpServer := transport.NewHTTPServer(transport.HTTPOptions{
		Addr:            cfg.HTTPAddr,
		ServiceName:     cfg.ServiceName,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RateLimitBurst:  cfg.RateLimitBurst,
		RequestTimeout:  cfg.RequestTimeout,
		Production:      cfg.IsProduction(),
	}, a.Agent, a.Dispatcher.Catalog(), a.Health, logger)
	g.Go(func() error { return httpServer.Run(ctx) })

	if cfg.NatsURL != "" {
		nt, err := transport.NewNATSTransport(transport.NATSOptions{
			URL:           cfg.NatsURL,
			Subject:       cfg.NatsRequestSubject,
			ServiceName:   cfg.ServiceName,
			Timeout:       cfg.NatsTimeout,
			MaxConcurrent: cfg.NatsMaxConcurrent,
		}, a.Agent, logger)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return nt.Run(ctx) })
	}

	err = g.Wait()
	logger.Info("Monastery360 agent stopped")
	return err
}
