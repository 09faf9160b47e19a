package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"khata/internal/amqp"
	"khata/internal/config"
	"khata/internal/docstore"
	"khata/internal/docstore/firebase"
	docmemory "khata/internal/docstore/memory"
	"khata/internal/log"
	"khata/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	logger.Info("Starting khata-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var docs docstore.Store
	switch cfg.DataBackend {
	case "firestore":
		client, err := firebase.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize Firestore client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		docs = client
		logger.Info("Initialized Firestore backend", "project_id", cfg.FirebaseProjectID)
	default:
		docs = docmemory.New()
		logger.Warn("Using memory backend: persisted messages are lost on exit", "backend", cfg.DataBackend)
	}

	persistWorker := worker.New(docs, logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Consuming persistence queue", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger, persistWorker.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
