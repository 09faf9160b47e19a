package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"khata/internal/amqp"
	"khata/internal/auth"
	authmemory "khata/internal/auth/memory"
	"khata/internal/config"
	"khata/internal/docstore"
	"khata/internal/docstore/firebase"
	docmemory "khata/internal/docstore/memory"
	apphttp "khata/internal/http"
	"khata/internal/log"
	"khata/internal/profile"
	"khata/internal/storage"
	"khata/internal/store"
	appsync "khata/internal/sync"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		docs        docstore.Store
		authSvc     auth.Service
		profileRepo profile.Repository
	)

	switch cfg.DataBackend {
	case "firestore":
		client, err := firebase.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize Firestore client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		docs = client
		authSvc = auth.NewFirebaseClient(cfg.FirebaseAPIKey, logger)
		profileRepo = profile.NewFirestoreRepository(client.Firestore())
		logger.Info("Initialized Firestore backend", "backend", cfg.DataBackend, "project_id", cfg.FirebaseProjectID)
	default:
		docs = docmemory.New()
		authSvc = authmemory.New()
		profileRepo = profile.NewMemoryRepository()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	var persister store.Persister
	switch cfg.PersistMode {
	case "queued":
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		persister = amqpClient
		logger.Info("Persisting through AMQP outbox", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	default:
		persister = store.DirectPersister{Upserter: docs, Deleter: docs}
	}

	snapshots, err := storage.NewSnapshotStore(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize snapshot store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer snapshots.Close()

	ledger := store.New(persister, logger)
	profiles := profile.NewService(profileRepo, docs, logger,
		profile.WithLookupTimeout(cfg.ProfileLookupTimeout))

	coordinator := appsync.New(ledger, docs, snapshots, logger,
		appsync.WithLoadTimeout(cfg.SyncLoadTimeout))
	unbind := coordinator.Bind(authSvc)
	defer unbind()

	srv := apphttp.NewServer(":"+cfg.Port, ledger, authSvc, profiles, coordinator, logger)
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting khata server", "port", cfg.Port, "backend", cfg.DataBackend, "persist_mode", cfg.PersistMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()

	// Drain in-flight persistence before exiting.
	coordinator.Wait()
	ledger.Wait()
	logger.Info("Server stopped gracefully")
}
