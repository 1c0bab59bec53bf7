package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
)

// JobScheduler creates embedding jobs and selects the items due for
// (re)embedding.
type JobScheduler interface {
	Schedule(ctx context.Context, t *models.Tenant) (*models.EmbeddingJob, []*models.ContentItem, error)
	SelectItems(ctx context.Context, t *models.Tenant) ([]*models.ContentItem, error)
}

// JobRunner executes a created embedding job and returns the number of
// items processed.
type JobRunner interface {
	Run(ctx context.Context, job *models.EmbeddingJob, t *models.Tenant, items []*models.ContentItem) (int, error)
}

type EmbeddingHandler struct {
	jobs      *repository.EmbeddingJobRepository
	tenants   *repository.TenantRepository
	scheduler JobScheduler
	runner    JobRunner
	logger    logger.Logger
}

func NewEmbeddingHandler(
	jobs *repository.EmbeddingJobRepository,
	tenants *repository.TenantRepository,
	scheduler JobScheduler,
	runner JobRunner,
	log logger.Logger,
) *EmbeddingHandler {
	return &EmbeddingHandler{
		jobs:      jobs,
		tenants:   tenants,
		scheduler: scheduler,
		runner:    runner,
		logger:    log,
	}
}

type scheduleRequest struct {
	TenantID string `json:"tenantId"`
}

// Schedule creates a pending embedding job covering the items edited
// since the tenant's last completed run.
func (h *EmbeddingHandler) Schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId is required"})
		return
	}

	t, err := h.lookupTenant(c.Request.Context(), req.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenant"})
		return
	}

	job, items, err := h.scheduler.Schedule(c.Request.Context(), t)
	if err != nil {
		h.logger.Error("Failed to schedule embedding job",
			logger.String("tenant_id", t.ID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule embedding job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Scheduled embedding job for %d items", len(items)),
		"jobId":      job.ID,
		"totalItems": job.TotalItems,
	})
}

type runRequest struct {
	JobID string `json:"jobId"`
}

// Run executes a previously created job. Jobs that already reached a
// terminal status are rejected rather than re-run.
func (h *EmbeddingHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "jobId is required"})
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), req.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
		return
	}
	if job.Status.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Job already finished with status %s", job.Status)})
		return
	}

	t, err := h.tenants.GetByID(c.Request.Context(), job.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenant"})
		return
	}

	items, err := h.scheduler.SelectItems(c.Request.Context(), t)
	if err != nil {
		h.logger.Error("Failed to select items for embedding",
			logger.String("job_id", job.ID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select items"})
		return
	}

	// Edits since scheduling can change the selection; refresh the total
	// so items_processed never reads past it.
	if len(items) != job.TotalItems {
		if err := h.jobs.SetTotalItems(c.Request.Context(), job.ID, len(items)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update job"})
			return
		}
		job.TotalItems = len(items)
	}

	processed, err := h.runner.Run(c.Request.Context(), job, t, items)
	if err != nil {
		h.logger.Error("Embedding job failed",
			logger.String("job_id", job.ID),
			logger.Int("items_processed", processed),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Embedding job failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        fmt.Sprintf("Processed %d of %d items", processed, len(items)),
		"itemsProcessed": processed,
	})
}

// Status returns one job's current state, for client-side polling.
func (h *EmbeddingHandler) Status(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// lookupTenant accepts either a tenant id or a slug.
func (h *EmbeddingHandler) lookupTenant(ctx context.Context, id string) (*models.Tenant, error) {
	t, err := h.tenants.GetByID(ctx, id)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrTenantNotFound) {
		return nil, err
	}
	return h.tenants.GetBySlug(ctx, id)
}
