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

var (
	// ErrJobNotFound is returned when no embedding job matches a lookup.
	ErrJobNotFound = errors.New("embedding job not found")
	// ErrJobTerminal is returned when a write targets a job whose status
	// is already terminal. Terminal states are immutable.
	ErrJobTerminal = errors.New("embedding job already in terminal state")
)

// EmbeddingJobRepository provides access to the embedding_jobs table.
type EmbeddingJobRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewEmbeddingJobRepository creates an embedding job repository.
func NewEmbeddingJobRepository(db *sql.DB, log logger.Logger) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: db, logger: log}
}

const jobColumns = `id, tenant_id, status, started_at, completed_at,
		total_items, items_processed, error_detail, created_at, updated_at`

// Create inserts a new pending job.
func (r *EmbeddingJobRepository) Create(ctx context.Context, job *models.EmbeddingJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobPending
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO embedding_jobs (
			id, tenant_id, status, started_at, total_items, items_processed,
			error_detail, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.TenantID, job.Status, job.StartedAt,
		job.TotalItems, job.ItemsProcessed, job.ErrorDetail,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert embedding job: %w", err)
	}
	return nil
}

// GetByID fetches a job by id.
func (r *EmbeddingJobRepository) GetByID(ctx context.Context, id string) (*models.EmbeddingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM embedding_jobs WHERE id = $1`
	return scanJobRow(r.db.QueryRowContext(ctx, query, id))
}

// LatestCompleted returns the most recent job with status completed for
// the tenant, or ErrJobNotFound when none exists (first run).
func (r *EmbeddingJobRepository) LatestCompleted(ctx context.Context, tenantID string) (*models.EmbeddingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM embedding_jobs
		WHERE tenant_id = $1 AND status = $2
		ORDER BY started_at DESC NULLS LAST
		LIMIT 1`
	return scanJobRow(r.db.QueryRowContext(ctx, query, tenantID, models.JobCompleted))
}

// MarkProcessing moves a pending job into processing and records its
// start time. Fails with ErrJobTerminal if the job already finished.
func (r *EmbeddingJobRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	query := `UPDATE embedding_jobs
		SET status = $2, started_at = $3, updated_at = $4
		WHERE id = $1 AND status IN ($5, $6)`

	result, err := r.db.ExecContext(ctx, query,
		id, models.JobProcessing, startedAt, time.Now(),
		models.JobPending, models.JobProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	return r.checkGuarded(ctx, id, result)
}

// AddProgress adds n to items_processed. Batched callers keep write
// volume bounded; the counter only ever grows.
func (r *EmbeddingJobRepository) AddProgress(ctx context.Context, id string, n int) error {
	query := `UPDATE embedding_jobs
		SET items_processed = items_processed + $2, updated_at = $3
		WHERE id = $1 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, id, n, time.Now(), models.JobProcessing)
	if err != nil {
		return fmt.Errorf("add job progress: %w", err)
	}
	return r.checkGuarded(ctx, id, result)
}

// SetTotalItems refreshes total_items. Items can be edited between job
// creation and the run, so the run-time selection may differ from the
// scheduled one; updating the total keeps progress reporting coherent.
func (r *EmbeddingJobRepository) SetTotalItems(ctx context.Context, id string, total int) error {
	query := `UPDATE embedding_jobs
		SET total_items = $2, updated_at = $3
		WHERE id = $1 AND status IN ($4, $5)`

	result, err := r.db.ExecContext(ctx, query,
		id, total, time.Now(),
		models.JobPending, models.JobProcessing,
	)
	if err != nil {
		return fmt.Errorf("set job total items: %w", err)
	}
	return r.checkGuarded(ctx, id, result)
}

// Finish terminates a job into completed, error, or partial_success. A
// job already in a terminal state is left untouched and ErrJobTerminal is
// returned.
func (r *EmbeddingJobRepository) Finish(ctx context.Context, id string, status models.JobStatus, errDetail string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish job: %q is not a terminal status", status)
	}

	query := `UPDATE embedding_jobs
		SET status = $2, error_detail = $3, completed_at = $4, updated_at = $4
		WHERE id = $1 AND status IN ($5, $6)`

	result, err := r.db.ExecContext(ctx, query,
		id, status, errDetail, time.Now(),
		models.JobPending, models.JobProcessing,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return r.checkGuarded(ctx, id, result)
}

// checkGuarded distinguishes "job missing" from "job already terminal"
// after a status-guarded update matched no rows.
func (r *EmbeddingJobRepository) checkGuarded(ctx context.Context, id string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return getErr
	}
	return ErrJobTerminal
}

func scanJobRow(row *sql.Row) (*models.EmbeddingJob, error) {
	var job models.EmbeddingJob
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.TenantID, &job.Status, &startedAt, &completedAt,
		&job.TotalItems, &job.ItemsProcessed, &job.ErrorDetail,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan embedding job: %w", err)
	}

	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
