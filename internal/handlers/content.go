package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/repository"
)

type ContentHandler struct {
	repo   *repository.ContentRepository
	logger logger.Logger
}

func NewContentHandler(repo *repository.ContentRepository, log logger.Logger) *ContentHandler {
	return &ContentHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *ContentHandler) List(c *gin.Context) {
	tenantID := c.Param("tenantId")

	items, err := h.repo.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list content",
			logger.String("tenant_id", tenantID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list content"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *ContentHandler) GetByPageID(c *gin.Context) {
	tenantID := c.Param("tenantId")
	pageID := c.Param("pageId")

	item, err := h.repo.GetByPageID(c.Request.Context(), tenantID, pageID)
	if err != nil {
		if errors.Is(err, repository.ErrContentItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load content item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// RecordVisit bumps an item's visitor counter.
func (h *ContentHandler) RecordVisit(c *gin.Context) {
	tenantID := c.Param("tenantId")
	pageID := c.Param("pageId")

	if err := h.repo.IncrementVisitors(c.Request.Context(), tenantID, pageID); err != nil {
		if errors.Is(err, repository.ErrContentItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content item not found"})
			return
		}
		h.logger.Error("Failed to record visit",
			logger.String("tenant_id", tenantID),
			logger.String("page_id", pageID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record visit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
