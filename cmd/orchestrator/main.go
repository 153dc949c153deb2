package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"bizcard/internal/config"
	"bizcard/internal/logger"
	"bizcard/internal/orchestrator/contactimport"
	"bizcard/internal/orchestrator/scanrollup"
	"bizcard/internal/pgmq"
	"bizcard/internal/pubsub"
	"bizcard/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Orchestrator mode: scan-rollup|contact-import")
	// EVENTS_BACKEND picks the source: pgmq queues or Pub/Sub subscriptions
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	var worker config.Worker
	switch *mode {
	case "scan-rollup":
		worker = cfg.ScanRollupWorker()
	case "contact-import":
		worker = cfg.ContactImportWorker()
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := repository.OpenPostgres(ctx, cfg.DBConnectionString, cfg.Environment)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to DB: %v", err)
	}
	defer db.Close()
	logger.Info().Msg("Database connection established")

	cards := repository.NewCardRepo(db)
	contacts := repository.NewContactRepo(db)

	// Pub/Sub deliveries go through the same processors as pgmq messages.
	var handle pubsub.HandlerFunc
	switch *mode {
	case "scan-rollup":
		log := logger.With().Str("service", "ScanRollup").Logger()
		handle = func(ctx context.Context, _ string, data []byte) error {
			return scanrollup.Handle(ctx, cards, log, data)
		}
	case "contact-import":
		handle = contactimport.NewProcessor(logger, cards, contacts, worker).Handle
	}

	var runErr error
	switch cfg.EventsBackend {
	case "pubsub":
		sub, err := pubsub.NewSubscriber(ctx, cfg, *mode, worker, handle, logger)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub subscriber: %v", err)
		}
		defer sub.Close()
		logger.Info().Str("subscription", worker.Queue+"-sub").Msg("Pub/Sub subscriber initialized")
		runErr = sub.Run(ctx)
	case "pgmq":
		pgmqClient := pgmq.New(db)
		for _, q := range []string{worker.Queue, worker.DeadLetter} {
			if err := pgmqClient.CreateQueue(ctx, q); err != nil {
				logger.Fatal().Msgf("Failed to create queue %s: %v", q, err)
			}
		}
		logger.Info().Str("queue", worker.Queue).Str("dead_letter", worker.DeadLetter).Msg("PGMQ client initialized")
		switch *mode {
		case "scan-rollup":
			runErr = scanrollup.Run(ctx, logger, pgmqClient, cards, worker)
		case "contact-import":
			runErr = contactimport.Run(ctx, logger, pgmqClient, cards, contacts, worker)
		}
	default:
		logger.Fatal().Msgf("EVENTS_BACKEND=%q has no queue to consume", cfg.EventsBackend)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
