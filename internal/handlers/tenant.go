package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
)

type TenantHandler struct {
	repo   *repository.TenantRepository
	logger logger.Logger
}

func NewTenantHandler(repo *repository.TenantRepository, log logger.Logger) *TenantHandler {
	return &TenantHandler{
		repo:   repo,
		logger: log,
	}
}

// createTenantRequest exists because the API key is never serialized on
// the tenant model, but registration has to accept one.
type createTenantRequest struct {
	Slug             string `json:"slug"`
	SourceDatabaseID string `json:"source_database_id"`
	SourceAPIKey     string `json:"source_api_key"`
}

func (h *TenantHandler) Create(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug is required"})
		return
	}
	if req.SourceDatabaseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_database_id is required"})
		return
	}

	t := models.Tenant{
		Slug:             req.Slug,
		SourceDatabaseID: req.SourceDatabaseID,
		SourceAPIKey:     req.SourceAPIKey,
	}

	if err := h.repo.Create(c.Request.Context(), &t); err != nil {
		h.logger.Error("Failed to create tenant",
			logger.String("slug", t.Slug),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tenant"})
		return
	}

	h.logger.Info("Tenant created",
		logger.String("tenant_id", t.ID),
		logger.String("slug", t.Slug),
	)

	c.JSON(http.StatusCreated, &t)
}

func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list tenants",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tenants"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// GetByID also accepts a slug, since operators address tenants by slug.
func (h *TenantHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	t, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTenantNotFound) {
		t, err = h.repo.GetBySlug(c.Request.Context(), id)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	c.JSON(http.StatusOK, t)
}
