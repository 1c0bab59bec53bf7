// Package webhook consumes provider page-lifecycle events and keeps
// content item state converged with the source.
package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/northpages/contentsync/internal/events"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
	"github.com/northpages/contentsync/internal/source"
	contentsync "github.com/northpages/contentsync/internal/sync"
	"github.com/northpages/contentsync/internal/tenant"
)

// Processor handles one page-lifecycle event at a time. It runs the same
// normalization pipeline as the full-sync path; reprocessing an event (or
// an equivalent later event for the same page) converges to the same end
// state via the upsert key, never duplicating a content item.
type Processor struct {
	resolver      *tenant.Resolver
	source        *source.Client
	pipeline      *contentsync.Pipeline
	content       *repository.ContentRepository
	tenants       *repository.TenantRepository
	verifications *repository.VerificationRepository
	publisher     *events.Publisher
	logger        logger.Logger
}

// NewProcessor creates a webhook event processor. publisher may be nil.
func NewProcessor(
	resolver *tenant.Resolver,
	src *source.Client,
	pipeline *contentsync.Pipeline,
	content *repository.ContentRepository,
	tenants *repository.TenantRepository,
	verifications *repository.VerificationRepository,
	publisher *events.Publisher,
	log logger.Logger,
) *Processor {
	return &Processor{
		resolver:      resolver,
		source:        src,
		pipeline:      pipeline,
		content:       content,
		tenants:       tenants,
		verifications: verifications,
		publisher:     publisher,
		logger:        log,
	}
}

// Process routes one event. explicitTenant is the optional
// tenant-identifying query parameter from the delivery address.
//
// Every business outcome returns a success result: an unresolved tenant
// is acknowledged without mutation (cross-tenant leakage and provider
// retry storms are both worse than a dropped event), and "page already
// gone" corroborates deletion rather than erroring.
func (p *Processor) Process(ctx context.Context, explicitTenant string, event *Event) (*Result, error) {
	if event.IsVerification() {
		return p.handleVerification(ctx, explicitTenant, event)
	}

	t, err := p.resolver.Resolve(ctx, explicitTenant, event.SourceDatabaseID())
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			p.logger.Debug("Event for unknown tenant acknowledged",
				logger.String("event_type", event.Type),
				logger.String("page_id", event.Entity.ID),
			)
			return success(event.Type, event.Entity.ID, "no matching tenant"), nil
		}
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	log := p.logger.With(
		logger.String("tenant_id", t.ID),
		logger.String("event_type", event.Type),
		logger.String("page_id", event.Entity.ID),
	)

	switch event.Type {
	case TypePageCreated, TypePagePropsUpdated, TypePageContentUpdate:
		return p.handleUpsert(ctx, t, event, log)
	case TypePageDeleted:
		return p.handleRemoval(ctx, t, event, log)
	case TypePageMoved:
		return p.handleMove(ctx, t, event, log)
	case TypePageUndeleted:
		return p.handleUndelete(ctx, t, event, log)
	default:
		log.Debug("Unrecognized event type acknowledged")
		return success(event.Type, event.Entity.ID, "event type not handled"), nil
	}
}

// handleVerification records the provider challenge token. Tenant
// resolution is best-effort: challenges are delivered to the exact
// subscribed address, so the explicit parameter usually pins it.
func (p *Processor) handleVerification(ctx context.Context, explicitTenant string, event *Event) (*Result, error) {
	token := event.Token
	if token == "" {
		token = event.Challenge
	}

	verification := &models.WebhookVerification{
		Token:         token,
		ChallengeType: event.Type,
	}

	t, err := p.resolver.Resolve(ctx, explicitTenant, "")
	if err == nil {
		verification.TenantID = t.ID
		if tokenErr := p.tenants.UpdateWebhookToken(ctx, t.ID, token); tokenErr != nil {
			p.logger.Warn("Failed to store webhook token on tenant",
				logger.String("tenant_id", t.ID),
				logger.Error(tokenErr),
			)
		}
	}

	if recordErr := p.verifications.Record(ctx, verification); recordErr != nil {
		p.logger.Warn("Failed to record webhook verification", logger.Error(recordErr))
	}

	result := success(TypeURLVerification, "", "verification recorded")
	result.Challenge = event.Challenge
	return result, nil
}

// handleUpsert re-fetches the page and runs the full normalization
// pipeline, identical to the full-sync path.
func (p *Processor) handleUpsert(ctx context.Context, t *models.Tenant, event *Event, log logger.Logger) (*Result, error) {
	page, err := p.source.GetPage(ctx, t.SourceAPIKey, event.Entity.ID)
	if err != nil {
		// The event did not imply deletion, so a missing page is just
		// logged; the provider gets success either way to avoid retry
		// amplification.
		log.Warn("Page fetch failed during upsert event", logger.Error(err))
		return success(event.Type, event.Entity.ID, "page not fetchable"), nil
	}

	if _, _, err := p.pipeline.ProcessPage(ctx, t, page); err != nil {
		return nil, fmt.Errorf("process page %s: %w", page.ID, err)
	}

	p.publisher.PublishAsync(events.ContentEvent{
		EventType:    events.ContentUpdated,
		TenantID:     t.ID,
		SourcePageID: page.ID,
	})

	log.Info("Content item upserted from event")
	return success(event.Type, event.Entity.ID, "content updated"), nil
}

// handleRemoval flips the item to removed, preserving all other fields.
func (p *Processor) handleRemoval(ctx context.Context, t *models.Tenant, event *Event, log logger.Logger) (*Result, error) {
	return p.markRemoved(ctx, t, event, log)
}

// handleMove re-fetches the page to learn where it went: moved into the
// tenant's database means active (re-normalize), moved out means removed.
// A fetch error on a deletion-implying event corroborates removal.
func (p *Processor) handleMove(ctx context.Context, t *models.Tenant, event *Event, log logger.Logger) (*Result, error) {
	page, err := p.source.GetPage(ctx, t.SourceAPIKey, event.Entity.ID)
	if err != nil {
		if errors.Is(err, source.ErrObjectNotFound) {
			log.Info("Moved page no longer accessible, marking removed")
			return p.markRemoved(ctx, t, event, log)
		}
		log.Warn("Page fetch failed during move event", logger.Error(err))
		return success(event.Type, event.Entity.ID, "page not fetchable"), nil
	}

	if tenant.SameSourceDatabase(page.Parent.DatabaseID, t.SourceDatabaseID) {
		return p.handleUpsert(ctx, t, event, log)
	}

	log.Info("Page moved out of tenant database, marking removed")
	return p.markRemoved(ctx, t, event, log)
}

// handleUndelete flips the item back to active, re-normalizing when the
// page is fetchable and flipping status only when it is not.
func (p *Processor) handleUndelete(ctx context.Context, t *models.Tenant, event *Event, log logger.Logger) (*Result, error) {
	_, err := p.source.GetPage(ctx, t.SourceAPIKey, event.Entity.ID)
	if err == nil {
		return p.handleUpsert(ctx, t, event, log)
	}
	log.Warn("Undeleted page not fetchable, flipping status only", logger.Error(err))

	if err := p.content.SetStatus(ctx, t.ID, event.Entity.ID, models.StatusActive); err != nil {
		if errors.Is(err, repository.ErrContentItemNotFound) {
			return success(event.Type, event.Entity.ID, "no item to restore"), nil
		}
		return nil, fmt.Errorf("restore content item: %w", err)
	}

	p.publisher.PublishAsync(events.ContentEvent{
		EventType:    events.ContentUpdated,
		TenantID:     t.ID,
		SourcePageID: event.Entity.ID,
	})
	return success(event.Type, event.Entity.ID, "content restored"), nil
}

func (p *Processor) markRemoved(ctx context.Context, t *models.Tenant, event *Event, log logger.Logger) (*Result, error) {
	err := p.content.SetStatus(ctx, t.ID, event.Entity.ID, models.StatusRemoved)
	if err != nil {
		if errors.Is(err, repository.ErrContentItemNotFound) {
			// Already gone locally; the removal event is satisfied.
			return success(event.Type, event.Entity.ID, "page already removed"), nil
		}
		return nil, fmt.Errorf("mark content removed: %w", err)
	}

	p.publisher.PublishAsync(events.ContentEvent{
		EventType:    events.ContentRemoved,
		TenantID:     t.ID,
		SourcePageID: event.Entity.ID,
	})

	log.Info("Content item marked removed")
	return success(event.Type, event.Entity.ID, "content removed"), nil
}
