package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"dropsync/internal/config"
	"dropsync/internal/logger"
	"dropsync/internal/worker"
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

	// Initialize worker
	w := worker.New(cfg, logger)

	// Start worker
	logger.Info("Starting notification worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
