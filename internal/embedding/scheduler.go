package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
)

// Scheduler computes the incremental set of content items needing
// (re)embedding and creates the job tracking their progress.
type Scheduler struct {
	jobs    *repository.EmbeddingJobRepository
	content *repository.ContentRepository
	logger  logger.Logger
}

// NewScheduler creates an embedding job scheduler.
func NewScheduler(jobs *repository.EmbeddingJobRepository, content *repository.ContentRepository, log logger.Logger) *Scheduler {
	return &Scheduler{jobs: jobs, content: content, logger: log}
}

// Schedule selects the items edited since the last completed job and
// creates a new pending job covering them.
//
// The cutoff is the previous job's started_at, deliberately not its
// completed_at: edits made while that run was in flight land after its
// start time and are still captured by this run. With no prior completed
// job every active item is selected.
func (s *Scheduler) Schedule(ctx context.Context, t *models.Tenant) (*models.EmbeddingJob, []*models.ContentItem, error) {
	items, err := s.SelectItems(ctx, t)
	if err != nil {
		return nil, nil, err
	}

	job := &models.EmbeddingJob{
		TenantID:   t.ID,
		Status:     models.JobPending,
		TotalItems: len(items),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("create embedding job: %w", err)
	}

	s.logger.Info("Embedding job scheduled",
		logger.String("tenant_id", t.ID),
		logger.String("job_id", job.ID),
		logger.Int("total_items", len(items)),
	)
	return job, items, nil
}

// SelectItems returns the items due for (re)embedding under the current
// cutoff. A pending job never moves the cutoff, so reselecting for an
// already-created job yields the same set plus any edits made since.
func (s *Scheduler) SelectItems(ctx context.Context, t *models.Tenant) ([]*models.ContentItem, error) {
	var cutoff *time.Time
	last, err := s.jobs.LatestCompleted(ctx, t.ID)
	switch {
	case err == nil:
		cutoff = last.StartedAt
	case errors.Is(err, repository.ErrJobNotFound):
		// First run for this tenant.
	default:
		return nil, fmt.Errorf("find last completed job: %w", err)
	}

	items, err := s.content.SelectForEmbedding(ctx, t.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select items for embedding: %w", err)
	}
	return items, nil
}

// FlattenText produces the text handed to the embedder for one item:
// title, description, then every block's text in document order.
func FlattenText(item *models.ContentItem) string {
	var sb strings.Builder
	if item.Title != "" {
		sb.WriteString(item.Title)
		sb.WriteString("\n")
	}
	if item.Description != "" {
		sb.WriteString(item.Description)
		sb.WriteString("\n")
	}
	flattenBlocks(&sb, item.Blocks)
	return strings.TrimSpace(sb.String())
}

func flattenBlocks(sb *strings.Builder, blocks []*models.ContentBlock) {
	for _, b := range blocks {
		if b.Text != "" {
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		}
		if b.Table != nil {
			for _, row := range b.Table.Rows {
				for _, cell := range row.Cells {
					if cell.Text != "" {
						sb.WriteString(cell.Text)
						sb.WriteString(" ")
					}
				}
				sb.WriteString("\n")
			}
		}
		flattenBlocks(sb, b.Children)
	}
}
