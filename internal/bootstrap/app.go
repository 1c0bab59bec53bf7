// Package bootstrap handles application initialization and lifecycle
// management for the content sync service.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/northpages/contentsync/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Start initializes and runs the service until SIGINT/SIGTERM.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Content Sync Service",
		logger.Int("port", cfg.Server.Port),
		logger.Bool("debug", cfg.Debug),
	)

	// Phase 2: Setup database
	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database connection", logger.Error(closeErr))
		}
	}()
	log.Info("Database connection established")

	// Phase 3: Setup Redis (optional)
	locker, publisher := SetupRedis(cfg, log)

	// Phase 4: Setup Elasticsearch (optional)
	index, err := SetupSearch(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup search: %w", err)
	}

	// Phase 5: Setup and run HTTP server
	server := SetupHTTPServer(cfg, db, locker, publisher, index, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Info("Received signal", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", logger.Error(err))
	}

	log.Info("Content Sync Service stopped")
	return nil
}
