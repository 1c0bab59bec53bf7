// Package repository provides database access for tenants, content items,
// embedding jobs, and webhook verifications.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
)

// ErrTenantNotFound is returned when no tenant matches a lookup. Webhook
// callers must treat it as non-retryable and acknowledge silently.
var ErrTenantNotFound = errors.New("tenant not found")

// TenantRepository provides access to the tenants table.
type TenantRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewTenantRepository creates a tenant repository.
func NewTenantRepository(db *sql.DB, log logger.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: log}
}

const tenantColumns = `id, slug, source_database_id, source_api_key, webhook_token, created_at, updated_at`

// Create inserts a new tenant.
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	tenant.CreatedAt = time.Now()
	tenant.UpdatedAt = tenant.CreatedAt

	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Slug,
		tenant.SourceDatabaseID,
		tenant.SourceAPIKey,
		tenant.WebhookToken,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID fetches a tenant by id.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug fetches a tenant by its url-parameter slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

// List returns all tenants ordered by slug. Tenant counts are expected to
// stay small; webhook resolution scans this list.
func (r *TenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY slug`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(
			&t.ID, &t.Slug, &t.SourceDatabaseID, &t.SourceAPIKey,
			&t.WebhookToken, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}
	return tenants, nil
}

// UpdateWebhookToken records the latest verification token for a tenant.
func (r *TenantRepository) UpdateWebhookToken(ctx context.Context, tenantID, token string) error {
	query := `UPDATE tenants SET webhook_token = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, tenantID, token, time.Now())
	if err != nil {
		return fmt.Errorf("update webhook token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (r *TenantRepository) scanOne(row *sql.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(
		&t.ID, &t.Slug, &t.SourceDatabaseID, &t.SourceAPIKey,
		&t.WebhookToken, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	return &t, nil
}
