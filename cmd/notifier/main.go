package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"usdt-custody/config"
	kafkaAdapter "usdt-custody/internal/adapter/kafka"
	pgStorage "usdt-custody/internal/adapter/storage/postgres"
	"usdt-custody/internal/service"
	"usdt-custody/pkg/logger"
)

// The notifier is the delivery half of the transactional outbox. It polls
// event_outbox and publishes each row to Kafka. Running it as a separate
// binary keeps the API write path free of broker latency.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Dur("poll_interval", cfg.Kafka.PollInterval).
		Msg("Starting outbox notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	publisher := kafkaAdapter.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka writer")
		}
	}()

	outboxRepo := pgStorage.NewOutboxRepo(pool)
	notifier := service.NewNotifierService(outboxRepo, publisher, cfg.Kafka.PollInterval, cfg.Kafka.PollBatch, log)

	if err := notifier.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Notifier stopped with error")
	}

	log.Info().Msg("Notifier exited")
}
