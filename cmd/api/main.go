package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropsync/internal/api"
	"dropsync/internal/catalog"
	"dropsync/internal/categorize"
	"dropsync/internal/config"
	"dropsync/internal/database"
	"dropsync/internal/inventory"
	"dropsync/internal/logger"
	"dropsync/internal/notify"
	"dropsync/internal/syncer"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	// Notifications go through Kafka when brokers are configured and
	// degrade to logs otherwise.
	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.KafkaBrokers != "" {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, logger)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	// Categorization engine: per-supplier keyword rules out of the
	// database, optional AI assist, optional platform fallback rules.
	var aiClient *categorize.AIClient
	if cfg.OpenAIAPIKey != "" {
		aiClient = categorize.NewAIClient(cfg.OpenAIAPIKey, logger)
	}
	var fallbackRules []categorize.Rule
	if cfg.CategoryRulesPath != "" {
		fallbackRules, err = categorize.LoadFallbackRules(cfg.CategoryRulesPath)
		if err != nil {
			logger.Warn("Could not load fallback category rules: %v", err)
		}
	}
	categorizer := categorize.NewEngine(categorize.NewGormLister(db.DB), aiClient, fallbackRules, logger)

	// Sync pipeline
	catalogStore := catalog.NewGormStore(db.DB, logger)
	upserter := catalog.NewUpsertEngine(catalogStore, categorizer, logger)
	reconciler := inventory.NewReconciler(catalogStore, inventory.NewGormMerchants(db.DB), notifier, cfg.LowStockThreshold, logger)
	runStore := syncer.NewGormRunStore(db.DB)

	orchestrator := syncer.New(cfg, syncer.Deps{
		Suppliers:  syncer.NewGormSupplierStore(db.DB),
		Runs:       runStore,
		Upserter:   upserter,
		Reconciler: reconciler,
		Counter:    catalogStore,
		Notifier:   notifier,
	}, logger)

	syncCtx, stopSync := context.WithCancel(context.Background())
	go orchestrator.Start(syncCtx)

	// Initialize API server
	server := api.New(cfg, logger, db, api.Deps{
		Orchestrator: orchestrator,
		Upserter:     upserter,
		Reconciler:   reconciler,
		Categorizer:  categorizer,
		Runs:         runStore,
	})

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Stop scheduling new cycles; an in-flight cycle finishes on its own.
	stopSync()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}
