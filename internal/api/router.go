// Package api wires the HTTP surface: routing, middleware, and the
// server lifecycle.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/northpages/contentsync/internal/handlers"
	"github.com/northpages/contentsync/internal/logger"
)

const (
	corsMaxAgeHours = 12
)

// Handlers groups the route handlers the router mounts.
type Handlers struct {
	Webhook   *handlers.WebhookHandler
	Sync      *handlers.SyncHandler
	Embedding *handlers.EmbeddingHandler
	Tenant    *handlers.TenantHandler
	Content   *handlers.ContentHandler
}

func NewRouter(h Handlers, corsOrigins []string, debug bool, log logger.Logger) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// CORS middleware - must be first so preflight requests are answered
	// before anything else runs
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"X-CSRF-Token", "Authorization", "accept", "origin",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        corsMaxAgeHours * time.Hour,
	}
	if len(corsOrigins) == 1 && corsOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	// Middleware
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook deliveries arrive at the root-level path the provider was
	// subscribed with
	router.POST("/webhook", h.Webhook.Receive)

	// API v1
	v1 := router.Group("/api/v1")

	v1.POST("/sync", h.Sync.Trigger)

	embedding := v1.Group("/embedding")
	embedding.POST("/jobs", h.Embedding.Schedule)
	embedding.POST("/run", h.Embedding.Run)
	embedding.GET("/jobs/:id", h.Embedding.Status)

	tenants := v1.Group("/tenants")
	tenants.POST("", h.Tenant.Create)
	tenants.GET("", h.Tenant.List)
	tenants.GET("/:id", h.Tenant.GetByID)

	items := v1.Group("/content/:tenantId")
	items.GET("", h.Content.List)
	items.GET("/:pageId", h.Content.GetByPageID)
	items.POST("/:pageId/visit", h.Content.RecordVisit)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
