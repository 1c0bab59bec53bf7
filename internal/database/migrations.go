package database

import (
	"context"
	"fmt"
)

// schema holds the idempotent DDL statements run at startup, in order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		source_database_id TEXT NOT NULL,
		source_api_key TEXT NOT NULL,
		webhook_token TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS content_items (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		source_page_id TEXT NOT NULL,
		source_url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		tags JSONB NOT NULL DEFAULT '[]',
		blocks JSONB NOT NULL DEFAULT '[]',
		cover_url TEXT NOT NULL DEFAULT '',
		preview_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		visitors BIGINT NOT NULL DEFAULT 0,
		embedding JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, source_page_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_tenant_updated
		ON content_items (tenant_id, updated_at)`,
	`CREATE TABLE IF NOT EXISTS embedding_jobs (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'pending',
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		total_items INT NOT NULL DEFAULT 0,
		items_processed INT NOT NULL DEFAULT 0,
		error_detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_embedding_jobs_tenant_status
		ON embedding_jobs (tenant_id, status, started_at)`,
	`CREATE TABLE IF NOT EXISTS webhook_verifications (
		id UUID PRIMARY KEY,
		tenant_id UUID REFERENCES tenants(id) ON DELETE SET NULL,
		token TEXT NOT NULL,
		challenge_type TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema. Every statement is idempotent, so running
// at each startup is safe.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	d.logger.Info("Database schema up to date")
	return nil
}
