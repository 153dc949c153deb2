package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bizcard/internal/config"
	"bizcard/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const retention = 7 * 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on system environment variables.")
	}

	logger := logger.New()
	logger.Info().Msg("Starting Pub/Sub setup for the local emulator")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set in the environment.")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set; this tool only targets the emulator.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	resetEmulator(ctx, client, logger)
	for _, w := range []config.Worker{cfg.ScanRollupWorker(), cfg.ContactImportWorker()} {
		if err := ensureTopic(ctx, client, logger, w); err != nil {
			logger.Fatal().Err(err).Str("topic", w.Queue).Msg("Failed to set up topic")
		}
	}
	logger.Info().Msg("Pub/Sub setup for local emulator complete")
}

// resetEmulator deletes every subscription and topic so the setup starts clean.
func resetEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Msgf("Deleting subscription: %s", sub.ID())
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Msgf("Deleting topic: %s", topic.ID())
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete topic %s: %v", topic.ID(), err)
		}
	}
}

// ensureTopic creates the event topic, its dead-letter topic and a pull subscription on each.
// Delivery attempts on the main subscription mirror the worker's retry budget.
func ensureTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, w config.Worker) error {
	dlq, err := createTopicIfNotExists(ctx, client, logger, w.DeadLetter)
	if err != nil {
		return err
	}
	primary, err := createTopicIfNotExists(ctx, client, logger, w.Queue)
	if err != nil {
		return err
	}

	attempts := w.MaxRetries + 1
	// Pub/Sub accepts 5 to 100 delivery attempts
	attempts = max(5, min(attempts, 100))
	if err := createSubscriptionIfNotExists(ctx, client, logger, w.Queue+"-sub", pubsub.SubscriptionConfig{
		Topic:            primary,
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
		RetryPolicy: &pubsub.RetryPolicy{
			MinimumBackoff: max(w.BackoffInitial, 10*time.Second),
			MaximumBackoff: max(w.BackoffMax, 10*time.Second),
		},
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlq.String(),
			MaxDeliveryAttempts: attempts,
		},
	}); err != nil {
		return err
	}
	return createSubscriptionIfNotExists(ctx, client, logger, w.DeadLetter+"-sub", pubsub.SubscriptionConfig{
		Topic:            dlq,
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
	})
}

func createTopicIfNotExists(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string) (*pubsub.Topic, error) {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	if exists {
		logger.Info().Msgf("Topic %s already exists", topicID)
		return topic, nil
	}
	logger.Info().Msgf("Creating topic: %s with %v retention", topicID, retention)
	return client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{RetentionDuration: retention})
}

func createSubscriptionIfNotExists(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, cfg pubsub.SubscriptionConfig) error {
	exists, err := client.Subscription(subID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", subID, err)
	}
	if exists {
		logger.Info().Msgf("Subscription %s already exists", subID)
		return nil
	}
	logger.Info().Msgf("Creating pull subscription %s", subID)
	if _, err := client.CreateSubscription(ctx, subID, cfg); err != nil {
		return fmt.Errorf("create subscription %s: %w", subID, err)
	}
	return nil
}
