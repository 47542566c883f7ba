package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/api"
	"github.com/Aidin1998/energydesk/api/handlers"
	"github.com/Aidin1998/energydesk/internal/agents"
	"github.com/Aidin1998/energydesk/internal/chat"
	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/internal/marketfeeds"
	"github.com/Aidin1998/energydesk/internal/scheduler"
	"github.com/Aidin1998/energydesk/internal/store"
	"github.com/Aidin1998/energydesk/internal/telemetry"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/logger"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "energydesk",
		Short: "Energy trading desk with AI analysis agents",
		Long: `energydesk serves the trading dashboard API and push channel, refreshes
market prices on a fixed interval and runs the analysis agents for every
connected trader.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("Warning: .env file not found, using environment variables")
			}

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				log.Printf("Failed to load configuration: %v", err)
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     cfg.Telemetry.TracingEnabled,
		Metrics:     cfg.Telemetry.MetricsEnabled,
	})
	if err != nil {
		zapLogger.Error("Failed to set up telemetry", zap.Error(err))
		return err
	}

	db := store.New()
	if cfg.SeedDemo {
		demo, err := db.SeedDemo(ctx)
		if err != nil {
			zapLogger.Error("Failed to seed demo data", zap.Error(err))
			return err
		}
		zapLogger.Info("Demo trader ready", zap.String("user_id", demo.ID), zap.String("username", demo.Username))
	}

	feed := marketfeeds.NewMarketFeed(cfg.Feeds, zapLogger)
	news := marketfeeds.NewNewsFeed(cfg.Feeds, zapLogger)
	weather := marketfeeds.NewWeatherFeed(cfg.Feeds, zapLogger)

	model, err := llm.New(ctx, cfg.LLM, zapLogger)
	if err != nil {
		zapLogger.Error("Failed to create language model", zap.Error(err))
		return err
	}

	validator := validation.NewValidator()
	orchestrator := agents.NewOrchestrator(db, feed, news, weather, model, validator, zapLogger)

	registry := ws.NewRegistry()
	broadcaster := ws.NewBroadcaster(registry, zapLogger)
	hub := ws.NewHub(registry, db, cfg.WS, zapLogger, ws.WithAllowedOrigins(cfg.Server.AllowedOrigins))

	sched := scheduler.New(cfg.Scheduler, feed, db, orchestrator, registry, broadcaster, zapLogger)
	assistant := chat.NewService(db, model, validator, broadcaster, zapLogger)

	apiServer, err := api.NewServer(cfg.Server, zapLogger,
		handlers.New(db, orchestrator, assistant, broadcaster, validator, zapLogger), hub)
	if err != nil {
		zapLogger.Error("Failed to create API server", zap.Error(err))
		return err
	}

	if err := sched.Start(ctx); err != nil {
		zapLogger.Error("Failed to start scheduler", zap.Error(err))
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		zapLogger.Info("Shutting down server...")
	case err = <-serveErr:
		if err != nil {
			zapLogger.Error("API server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("api server: %w", err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	registry.CloseAll()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	if len(errs) > 0 {
		zapLogger.Error("Shutdown finished with errors", zap.Error(errors.Join(errs...)))
		return errors.Join(errs...)
	}
	zapLogger.Info("Server exited properly")
	return nil
}
