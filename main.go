package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"deepguard/internal/config"
	"deepguard/internal/detection"
	"deepguard/internal/repository"
	"deepguard/internal/scorer"
	"deepguard/internal/server"
	"deepguard/internal/webhook"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Initialize repositories
	orgRepo := repository.NewOrganizationRepository(db, logger)
	jobRepo := repository.NewJobRepository(db, logger)
	versionRepo := repository.NewModelVersionRepository(db)

	// Initialize scorer client
	scorerClient := scorer.NewClient(cfg.Scorer.URL, time.Duration(cfg.Scorer.TimeoutSeconds)*time.Second, versionRepo)

	// Initialize webhook dispatcher (optional)
	var notifier detection.Notifier
	if cfg.Webhook.Enabled {
		notifier = webhook.NewDispatcher(
			time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
			cfg.Webhook.MaxRetries,
			cfg.Webhook.ResultBaseURL,
			logger,
		)
		logger.Info("Webhook dispatcher enabled")
	}

	// Initialize routing policy and aggregator; invalid weights are fatal.
	router := detection.NewRouter(cfg.Detection, logger)
	aggregator, err := detection.NewAggregator(cfg.Detection, logger)
	if err != nil {
		logger.Fatal("Invalid aggregation configuration", zap.Error(err))
	}

	// Initialize detection pipeline
	pipeline := detection.NewPipeline(jobRepo, orgRepo, scorerClient, router, aggregator, notifier, logger, detection.PipelineOptions{
		PollInterval: time.Duration(cfg.Pipeline.PollIntervalSeconds) * time.Second,
		Workers:      cfg.Pipeline.Workers,
		ClaimLimit:   cfg.Pipeline.ClaimLimit,
		TierTimeout:  time.Duration(cfg.Pipeline.TierTimeoutSeconds) * time.Second,
	})

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run pipeline in a goroutine
	go pipeline.Run(ctx)

	// Initialize and run the server
	srv := server.NewServer(db, cfg, logger)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
