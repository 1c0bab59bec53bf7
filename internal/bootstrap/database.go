package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/northpages/contentsync/internal/config"
	"github.com/northpages/contentsync/internal/database"
	"github.com/northpages/contentsync/internal/logger"
)

const migrateTimeout = 30 * time.Second

// SetupDatabase connects to PostgreSQL and applies the schema.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*database.DB, error) {
	db, err := database.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}
