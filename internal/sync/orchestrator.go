package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/northpages/contentsync/internal/events"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/source"
)

// Stats summarizes one full-sync run.
type Stats struct {
	TotalPages int           `json:"total_pages"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// Orchestrator enumerates all pages of a tenant's source database and runs
// the processing pipeline over each.
type Orchestrator struct {
	source      *source.Client
	pipeline    *Pipeline
	locker      *Locker
	publisher   *events.Publisher
	logger      logger.Logger
	pageSize    int
	concurrency int
}

// NewOrchestrator creates a full-sync orchestrator. locker and publisher
// may be nil.
func NewOrchestrator(
	src *source.Client,
	pipeline *Pipeline,
	locker *Locker,
	publisher *events.Publisher,
	log logger.Logger,
	pageSize, concurrency int,
) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 100
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		source:      src,
		pipeline:    pipeline,
		locker:      locker,
		publisher:   publisher,
		logger:      log,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

// Run performs a full resync for one tenant. Concurrent runs for the same
// tenant are rejected with ErrSyncInProgress; pages within the run are
// processed concurrently, each with its own media index scope. A single
// page's failure is logged and counted, never aborting the batch, so
// re-running against an unchanged source converges with no content diff.
func (o *Orchestrator) Run(ctx context.Context, tenant *models.Tenant) (*Stats, error) {
	release, err := o.locker.Acquire(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	stats := &Stats{}

	log := o.logger.With(logger.String("tenant_id", tenant.ID))
	log.Info("Starting full sync",
		logger.String("source_database_id", tenant.SourceDatabaseID),
	)

	pages := make(chan *source.Page)
	var mu gosync.Mutex
	var wg gosync.WaitGroup

	for range o.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pages {
				_, created, procErr := o.pipeline.ProcessPage(ctx, tenant, page)

				mu.Lock()
				switch {
				case procErr != nil:
					stats.Errors++
				case created:
					stats.Created++
				default:
					stats.Updated++
				}
				mu.Unlock()

				if procErr != nil {
					log.Error("Page sync failed",
						logger.String("page_id", page.ID),
						logger.Error(procErr),
					)
					continue
				}

				o.publisher.PublishAsync(events.ContentEvent{
					EventType:    events.ContentUpdated,
					TenantID:     tenant.ID,
					SourcePageID: page.ID,
				})
			}
		}()
	}

	enumErr := o.enumerate(ctx, tenant, pages, stats)
	close(pages)
	wg.Wait()

	stats.Duration = time.Since(start)

	if enumErr != nil {
		return stats, enumErr
	}

	log.Info("Full sync finished",
		logger.Int("total_pages", stats.TotalPages),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("errors", stats.Errors),
		logger.Duration("duration", stats.Duration),
	)

	o.publisher.PublishAsync(events.ContentEvent{
		EventType: events.SyncCompleted,
		TenantID:  tenant.ID,
	})

	return stats, nil
}

// enumerate walks the tenant's source database newest-first and feeds
// pages to the workers.
func (o *Orchestrator) enumerate(ctx context.Context, tenant *models.Tenant, out chan<- *source.Page, stats *Stats) error {
	cursor := ""
	for {
		list, err := o.source.QueryDatabase(ctx, tenant.SourceAPIKey, tenant.SourceDatabaseID, cursor, o.pageSize)
		if err != nil {
			return fmt.Errorf("enumerate source database: %w", err)
		}

		for _, page := range list.Results {
			stats.TotalPages++
			select {
			case out <- page:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if !list.HasMore || list.NextCursor == "" {
			return nil
		}
		cursor = list.NextCursor
	}
}
