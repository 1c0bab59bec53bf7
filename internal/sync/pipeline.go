// Package sync drives full resynchronization of tenant content and hosts
// the page-processing pipeline shared with the webhook path.
package sync

import (
	"context"
	"fmt"

	"github.com/northpages/contentsync/internal/assets"
	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/normalize"
	"github.com/northpages/contentsync/internal/repository"
	"github.com/northpages/contentsync/internal/source"
)

// Pipeline turns one source page into an upserted content item. Full
// resync and webhook processing both run this identical pipeline, so for
// the same source snapshot their outputs are identical by construction.
type Pipeline struct {
	source  *source.Client
	content *repository.ContentRepository
	store   assets.Store
	logger  logger.Logger
}

// NewPipeline creates a page-processing pipeline. store may be nil, in
// which case media blocks keep their source URLs.
func NewPipeline(src *source.Client, content *repository.ContentRepository, store assets.Store, log logger.Logger) *Pipeline {
	return &Pipeline{
		source:  src,
		content: content,
		store:   store,
		logger:  log,
	}
}

// ProcessPage fetches the page's full block tree, normalizes it with a
// fresh per-page media index scope, and upserts the content item keyed by
// (tenant, source page id) with status active. The boolean reports
// whether the row was created rather than updated.
func (p *Pipeline) ProcessPage(ctx context.Context, tenant *models.Tenant, page *source.Page) (*models.ContentItem, bool, error) {
	blocks, err := p.source.FetchBlockTree(ctx, tenant.SourceAPIKey, page.ID)
	if err != nil {
		return nil, false, fmt.Errorf("fetch block tree: %w", err)
	}

	item := p.normalizePage(ctx, tenant, page, blocks)

	created, err := p.content.Upsert(ctx, item)
	if err != nil {
		return nil, false, fmt.Errorf("upsert content item: %w", err)
	}
	return item, created, nil
}

// normalizePage runs the normalization chain over an already-fetched
// block forest. The media index scope is created fresh here, per page,
// and never shared: indices restart at 0 for every page on every run.
func (p *Pipeline) normalizePage(ctx context.Context, tenant *models.Tenant, page *source.Page, blocks []*source.Block) *models.ContentItem {
	var media normalize.MediaBackup
	if p.store != nil {
		backup := assets.NewBackupManager(p.store, p.source, tenant.Slug, p.logger)
		media = backup.PageScope(page.ID)
	}

	tree := normalize.New(media).NormalizeAll(ctx, blocks)

	item := &models.ContentItem{
		TenantID:     tenant.ID,
		SourcePageID: page.ID,
		SourceURL:    page.URL,
		Title:        page.Properties.Title,
		Description:  page.Properties.Description,
		Category:     page.Properties.Category,
		Tags:         page.Properties.Tags,
		Blocks:       tree,
		CoverURL:     page.CoverURL,
		Status:       models.StatusActive,
	}
	item.PreviewURL = previewURL(tree, page.CoverURL)
	return item
}

// previewURL picks the first media URL in document order, falling back to
// the page cover.
func previewURL(blocks []*models.ContentBlock, cover string) string {
	for _, b := range blocks {
		if b.MediaURL != "" {
			return b.MediaURL
		}
		if url := previewURL(b.Children, ""); url != "" {
			return url
		}
	}
	return cover
}
