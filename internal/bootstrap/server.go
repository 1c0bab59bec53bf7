package bootstrap

import (
	"github.com/northpages/contentsync/internal/api"
	"github.com/northpages/contentsync/internal/assets"
	"github.com/northpages/contentsync/internal/config"
	"github.com/northpages/contentsync/internal/database"
	"github.com/northpages/contentsync/internal/embedding"
	"github.com/northpages/contentsync/internal/events"
	"github.com/northpages/contentsync/internal/handlers"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/repository"
	"github.com/northpages/contentsync/internal/source"
	contentsync "github.com/northpages/contentsync/internal/sync"
	"github.com/northpages/contentsync/internal/tenant"
	"github.com/northpages/contentsync/internal/webhook"
)

// SetupHTTPServer wires repositories, services, and handlers into the
// HTTP server. locker, publisher, and index may be nil; those features
// then degrade rather than fail.
func SetupHTTPServer(
	cfg *config.Config,
	db *database.DB,
	locker *contentsync.Locker,
	publisher *events.Publisher,
	index *embedding.VectorIndex,
	log logger.Logger,
) *api.Server {
	tenants := repository.NewTenantRepository(db.DB(), log)
	content := repository.NewContentRepository(db.DB(), log)
	jobs := repository.NewEmbeddingJobRepository(db.DB(), log)
	verifications := repository.NewVerificationRepository(db.DB(), log)

	src := source.NewClient(source.Config{
		BaseURL: cfg.Source.BaseURL,
		Version: cfg.Source.Version,
		Timeout: cfg.Source.Timeout,
	}, log)

	var store assets.Store
	if cfg.Assets.Enabled {
		store = assets.NewHTTPStore(assets.HTTPStoreConfig{
			BaseURL: cfg.Assets.BaseURL,
			Bucket:  cfg.Assets.Bucket,
			Token:   cfg.Assets.Token,
		})
	}

	pipeline := contentsync.NewPipeline(src, content, store, log)
	orchestrator := contentsync.NewOrchestrator(src, pipeline, locker, publisher, log,
		cfg.Sync.PageSize, cfg.Sync.Concurrency)

	resolver := tenant.NewResolver(tenants, log)
	processor := webhook.NewProcessor(resolver, src, pipeline, content, tenants, verifications, publisher, log)

	embedder := embedding.NewClient(embedding.ClientConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	})
	scheduler := embedding.NewScheduler(jobs, content, log)
	worker := embedding.NewWorker(embedder, jobs, content, index, log, cfg.Embedding.BatchSize)

	router := api.NewRouter(api.Handlers{
		Webhook:   handlers.NewWebhookHandler(processor, log),
		Sync:      handlers.NewSyncHandler(resolver, orchestrator, log),
		Embedding: handlers.NewEmbeddingHandler(jobs, tenants, scheduler, worker, log),
		Tenant:    handlers.NewTenantHandler(tenants, log),
		Content:   handlers.NewContentHandler(content, log),
	}, cfg.Server.CORSOrigins, cfg.Debug, log)

	return api.NewServer(router, api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, log)
}
