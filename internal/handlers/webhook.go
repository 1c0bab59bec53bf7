package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/webhook"
)

// EventProcessor handles one decoded webhook event for a possibly
// unresolved tenant.
type EventProcessor interface {
	Process(ctx context.Context, explicitTenant string, event *webhook.Event) (*webhook.Result, error)
}

type WebhookHandler struct {
	processor EventProcessor
	logger    logger.Logger
}

func NewWebhookHandler(processor EventProcessor, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    log,
	}
}

// Receive accepts provider webhook deliveries. The delivery URL may carry
// a ?tenant= query parameter pinning resolution; without it the tenant is
// resolved from the database id embedded in the payload.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var event webhook.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Debug("Invalid webhook body",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.processor.Process(c.Request.Context(), c.Query("tenant"), &event)
	if err != nil {
		h.logger.Error("Webhook processing failed",
			logger.String("event_type", event.Type),
			logger.String("page_id", event.Entity.ID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to process event",
		})
		return
	}

	// Verification challenges echo only the challenge string back.
	if result.Challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": result.Challenge})
		return
	}

	c.JSON(http.StatusOK, result)
}
