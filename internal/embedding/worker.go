package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
)

// Worker embeds a job's selected items in batches. Progress is
// checkpointed per batch rather than per item to bound write volume, and
// embedding is idempotent per item, so a crashed run is safe to re-run.
type Worker struct {
	embedder  Embedder
	jobs      *repository.EmbeddingJobRepository
	content   *repository.ContentRepository
	index     *VectorIndex
	logger    logger.Logger
	batchSize int
}

// NewWorker creates an embedding worker. index may be nil.
func NewWorker(
	embedder Embedder,
	jobs *repository.EmbeddingJobRepository,
	content *repository.ContentRepository,
	index *VectorIndex,
	log logger.Logger,
	batchSize int,
) *Worker {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Worker{
		embedder:  embedder,
		jobs:      jobs,
		content:   content,
		index:     index,
		logger:    log,
		batchSize: batchSize,
	}
}

// Run processes one job to a terminal state: completed when every item
// embedded, partial_success when some did, error when none did. One
// item's failure never aborts the rest of the batch.
func (w *Worker) Run(ctx context.Context, job *models.EmbeddingJob, t *models.Tenant, items []*models.ContentItem) (int, error) {
	if err := w.jobs.MarkProcessing(ctx, job.ID, time.Now()); err != nil {
		return 0, fmt.Errorf("mark job processing: %w", err)
	}

	log := w.logger.With(
		logger.String("job_id", job.ID),
		logger.String("tenant_id", t.ID),
	)

	if err := w.index.EnsureIndex(ctx, t.Slug); err != nil {
		log.Warn("Vector index unavailable, storing vectors in rows only", logger.Error(err))
	}

	processed := 0
	failed := 0
	var lastErr error

	for start := 0; start < len(items); start += w.batchSize {
		end := min(start+w.batchSize, len(items))
		batch := items[start:end]

		ok, batchErr := w.processBatch(ctx, t, batch, log)
		processed += ok
		failed += len(batch) - ok
		if batchErr != nil {
			lastErr = batchErr
		}

		if ok > 0 {
			if err := w.jobs.AddProgress(ctx, job.ID, ok); err != nil {
				log.Error("Failed to checkpoint job progress", logger.Error(err))
			}
		}
	}

	status := models.JobCompleted
	detail := ""
	switch {
	case len(items) > 0 && processed == 0:
		status = models.JobError
		detail = fmt.Sprintf("no items embedded: %v", lastErr)
	case failed > 0:
		status = models.JobPartialSuccess
		detail = fmt.Sprintf("%d of %d items failed", failed, len(items))
	}

	if err := w.jobs.Finish(ctx, job.ID, status, detail); err != nil {
		return processed, fmt.Errorf("finish job: %w", err)
	}

	log.Info("Embedding job finished",
		logger.String("status", string(status)),
		logger.Int("items_processed", processed),
		logger.Int("items_failed", failed),
	)
	return processed, nil
}

// processBatch embeds one batch and persists vectors. Returns how many
// items of the batch succeeded.
func (w *Worker) processBatch(ctx context.Context, t *models.Tenant, batch []*models.ContentItem, log logger.Logger) (int, error) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = FlattenText(item)
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Error("Batch embedding failed", logger.Int("batch_size", len(batch)), logger.Error(err))
		return 0, err
	}

	ok := 0
	for i, item := range batch {
		item.Embedding = vectors[i]
		if err := w.content.UpdateEmbedding(ctx, item.ID, vectors[i]); err != nil {
			log.Error("Failed to store embedding",
				logger.String("content_item_id", item.ID),
				logger.Error(err),
			)
			continue
		}
		if err := w.index.IndexItem(ctx, t.Slug, item, texts[i]); err != nil {
			// Row write succeeded; the vector index can catch up on the
			// next run.
			log.Warn("Failed to write vector index doc",
				logger.String("content_item_id", item.ID),
				logger.Error(err),
			)
		}
		ok++
	}
	return ok, nil
}
