package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
)

// ErrContentItemNotFound is returned when no content item matches a lookup.
var ErrContentItemNotFound = errors.New("content item not found")

// ContentRepository provides access to the content_items table.
type ContentRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewContentRepository creates a content repository.
func NewContentRepository(db *sql.DB, log logger.Logger) *ContentRepository {
	return &ContentRepository{db: db, logger: log}
}

// Upsert inserts or updates a content item keyed by
// (tenant_id, source_page_id). Reprocessing the same page converges to
// the same row, never a duplicate. Returns true if the row was created.
func (r *ContentRepository) Upsert(ctx context.Context, item *models.ContentItem) (bool, error) {
	now := time.Now()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = models.StatusActive
	}
	item.UpdatedAt = now

	tagsJSON, err := json.Marshal(emptyIfNil(item.Tags))
	if err != nil {
		return false, fmt.Errorf("marshal tags: %w", err)
	}
	blocksJSON, err := json.Marshal(item.Blocks)
	if err != nil {
		return false, fmt.Errorf("marshal blocks: %w", err)
	}

	// xmax = 0 only on freshly inserted rows, distinguishing insert from
	// update without a second round trip.
	query := `
		INSERT INTO content_items (
			id, tenant_id, source_page_id, source_url, title, description,
			category, tags, blocks, cover_url, preview_url, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (tenant_id, source_page_id) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			tags = EXCLUDED.tags,
			blocks = EXCLUDED.blocks,
			cover_url = EXCLUDED.cover_url,
			preview_url = EXCLUDED.preview_url,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS is_insert
	`

	var isInsert bool
	err = r.db.QueryRowContext(ctx, query,
		item.ID,
		item.TenantID,
		item.SourcePageID,
		item.SourceURL,
		item.Title,
		item.Description,
		item.Category,
		tagsJSON,
		blocksJSON,
		item.CoverURL,
		item.PreviewURL,
		item.Status,
		now,
	).Scan(&item.ID, &item.CreatedAt, &isInsert)
	if err != nil {
		return false, fmt.Errorf("upsert content item: %w", err)
	}
	return isInsert, nil
}

const contentColumns = `id, tenant_id, source_page_id, source_url, title, description,
		category, tags, blocks, cover_url, preview_url, status, visitors,
		embedding, created_at, updated_at`

// GetByPageID fetches a content item by its upsert key.
func (r *ContentRepository) GetByPageID(ctx context.Context, tenantID, sourcePageID string) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items
		WHERE tenant_id = $1 AND source_page_id = $2`
	return scanContentRow(r.db.QueryRowContext(ctx, query, tenantID, sourcePageID))
}

// GetBySourceURL fetches a content item by source URL. Fallback identity
// when a provider payload carries the url but not the page id.
func (r *ContentRepository) GetBySourceURL(ctx context.Context, tenantID, sourceURL string) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items
		WHERE tenant_id = $1 AND source_url = $2`
	return scanContentRow(r.db.QueryRowContext(ctx, query, tenantID, sourceURL))
}

// SetStatus flips an item's lifecycle status and updates only the
// timestamp, preserving all other fields.
func (r *ContentRepository) SetStatus(ctx context.Context, tenantID, sourcePageID string, status models.ContentStatus) error {
	query := `UPDATE content_items SET status = $3, updated_at = $4
		WHERE tenant_id = $1 AND source_page_id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID, sourcePageID, status, time.Now())
	if err != nil {
		return fmt.Errorf("set content status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrContentItemNotFound
	}
	return nil
}

// ListByTenant returns all of a tenant's content items, newest first.
func (r *ContentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items
		WHERE tenant_id = $1 ORDER BY updated_at DESC`
	return r.queryItems(ctx, query, tenantID)
}

// SelectForEmbedding returns active items edited strictly after cutoff.
// A nil cutoff selects every active item for the tenant.
func (r *ContentRepository) SelectForEmbedding(ctx context.Context, tenantID string, cutoff *time.Time) ([]*models.ContentItem, error) {
	if cutoff == nil {
		query := `SELECT ` + contentColumns + ` FROM content_items
			WHERE tenant_id = $1 AND status = $2 ORDER BY updated_at`
		return r.queryItems(ctx, query, tenantID, models.StatusActive)
	}
	query := `SELECT ` + contentColumns + ` FROM content_items
		WHERE tenant_id = $1 AND status = $2 AND updated_at > $3 ORDER BY updated_at`
	return r.queryItems(ctx, query, tenantID, models.StatusActive, *cutoff)
}

// UpdateEmbedding stores a computed vector. The content timestamp is left
// alone so embedding writes never look like content edits to the next
// incremental selection.
func (r *ContentRepository) UpdateEmbedding(ctx context.Context, id string, vector []float32) error {
	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET embedding = $2 WHERE id = $1`, id, vectorJSON)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrContentItemNotFound
	}
	return nil
}

// IncrementVisitors bumps the visitor counter for one item.
func (r *ContentRepository) IncrementVisitors(ctx context.Context, tenantID, sourcePageID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET visitors = visitors + 1
			WHERE tenant_id = $1 AND source_page_id = $2`,
		tenantID, sourcePageID)
	if err != nil {
		return fmt.Errorf("increment visitors: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrContentItemNotFound
	}
	return nil
}

func (r *ContentRepository) queryItems(ctx context.Context, query string, args ...any) ([]*models.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.ContentItem, 0)
	for rows.Next() {
		item, err := scanContentColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content items: %w", err)
	}
	return items, nil
}

func scanContentRow(row *sql.Row) (*models.ContentItem, error) {
	item, err := scanContentColumns(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContentItemNotFound
	}
	return item, err
}

func scanContentColumns(scan func(dest ...any) error) (*models.ContentItem, error) {
	var item models.ContentItem
	var tagsJSON, blocksJSON []byte
	var embeddingJSON sql.NullString

	err := scan(
		&item.ID, &item.TenantID, &item.SourcePageID, &item.SourceURL,
		&item.Title, &item.Description, &item.Category, &tagsJSON,
		&blocksJSON, &item.CoverURL, &item.PreviewURL, &item.Status,
		&item.Visitors, &embeddingJSON, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan content item: %w", err)
	}

	if err := json.Unmarshal(tagsJSON, &item.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(blocksJSON, &item.Blocks); err != nil {
		return nil, fmt.Errorf("unmarshal blocks: %w", err)
	}
	if embeddingJSON.Valid {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &item.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	return &item, nil
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
