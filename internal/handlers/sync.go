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
	contentsync "github.com/northpages/contentsync/internal/sync"
)

// TenantResolver maps a resync request onto a registered tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, explicitTenant, sourceDatabaseID string) (*models.Tenant, error)
}

// SyncRunner runs a full resynchronization for one tenant.
type SyncRunner interface {
	Run(ctx context.Context, tenant *models.Tenant) (*contentsync.Stats, error)
}

type SyncHandler struct {
	resolver TenantResolver
	runner   SyncRunner
	logger   logger.Logger
}

func NewSyncHandler(resolver TenantResolver, runner SyncRunner, log logger.Logger) *SyncHandler {
	return &SyncHandler{
		resolver: resolver,
		runner:   runner,
		logger:   log,
	}
}

type resyncRequest struct {
	SourceDatabaseID string `json:"sourceDatabaseId"`
	SourceAPIKey     string `json:"sourceApiKey"`
	TenantID         string `json:"tenantId"`
}

// Trigger starts a full resync for the tenant named in the request. The
// request's database id and API key override the tenant record for this
// run, so a rotated key can be used before the record is updated.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req resyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.SourceDatabaseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sourceDatabaseId is required"})
		return
	}
	if req.SourceAPIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sourceApiKey is required"})
		return
	}

	t, err := h.resolver.Resolve(c.Request.Context(), req.TenantID, req.SourceDatabaseID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No matching tenant"})
			return
		}
		h.logger.Error("Tenant resolution failed",
			logger.String("tenant_id", req.TenantID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve tenant"})
		return
	}

	// Run against a copy so request-scoped credentials never leak into
	// shared tenant state.
	run := *t
	run.SourceDatabaseID = req.SourceDatabaseID
	run.SourceAPIKey = req.SourceAPIKey

	stats, err := h.runner.Run(c.Request.Context(), &run)
	if err != nil {
		if errors.Is(err, contentsync.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress for this tenant"})
			return
		}
		h.logger.Error("Full sync failed",
			logger.String("tenant_id", t.ID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
		return
	}

	h.logger.Info("Full sync finished",
		logger.String("tenant_id", t.ID),
		logger.Int("total_pages", stats.TotalPages),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("errors", stats.Errors),
		logger.Duration("duration", stats.Duration),
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Synced %d pages (%d created, %d updated, %d errors)",
			stats.TotalPages, stats.Created, stats.Updated, stats.Errors),
	})
}
