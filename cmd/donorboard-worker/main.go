package main

import (
	"context"
	"errors"
	"os"
	"time"

	"donorboard/internal/amqp"
	"donorboard/internal/cli"
	"donorboard/internal/config"
	"donorboard/internal/log"
	"donorboard/internal/storage"
	"donorboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	events, err := storage.NewEventLog(cfg.EventsDBPath)
	if err != nil {
		logger.Error("Failed to open event log", log.FieldError, err, "db_path", cfg.EventsDBPath)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		_ = events.Close()
		os.Exit(1)
	}

	w := worker.NewEventWorker(events, cfg.EventsRetention)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		_ = client.Close()
		_ = events.Close()
	})

	go w.RunPruner(ctx, time.Hour)

	logger.Info("Starting dataset event worker",
		"queue", cfg.AMQPQueue,
		"exchange", cfg.AMQPExchange,
		"retention", cfg.EventsRetention.String(),
		log.FieldOperation, log.OpStartup)

	// Reconnect with backoff whenever the broker drops the consumer.
	for attempt := 0; ctx.Err() == nil; attempt++ {
		err := client.ConsumeDatasetLoaded(ctx, cfg.AMQPQueue, w.HandleDatasetLoaded)
		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, amqp.ErrDeliveriesClosed) {
			attempt = 0
		}
		wait := backoff(attempt)
		logger.Warn("Consumer stopped, retrying",
			log.FieldError, err,
			"retry_in", wait.String())
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

func backoff(attempt int) time.Duration {
	d := time.Second << min(attempt, 5)
	return min(d, 30*time.Second)
}
