package assets

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
)

// Fetcher downloads the current bytes behind a transient media URL.
type Fetcher interface {
	FetchURL(ctx context.Context, url string) ([]byte, error)
}

// BackupManager rewrites transient media URLs to durable storage URLs.
// It is shared across pages; per-page index state lives in Scope.
type BackupManager struct {
	store   Store
	fetcher Fetcher
	prefix  string
	logger  logger.Logger
}

// NewBackupManager creates a backup manager. prefix namespaces stored
// keys, typically by tenant slug.
func NewBackupManager(store Store, fetcher Fetcher, prefix string, log logger.Logger) *BackupManager {
	return &BackupManager{
		store:   store,
		fetcher: fetcher,
		prefix:  prefix,
		logger:  log,
	}
}

// Scope holds the media index counter for one (processing run, page).
// A fresh scope must be created before processing each page and never
// shared across pages, so indices are a pure function of document order.
// Scope is not safe for concurrent use; a single page's blocks are
// traversed sequentially.
type Scope struct {
	m      *BackupManager
	pageID string
	next   int
}

// PageScope creates a fresh 0-based index scope for one page.
func (m *BackupManager) PageScope(pageID string) *Scope {
	return &Scope{m: m, pageID: pageID}
}

// NextIndex returns the current index and increments the counter.
func (s *Scope) NextIndex() int {
	idx := s.next
	s.next++
	return idx
}

// Backup assigns the block its position index, fetches the source bytes,
// stores them under a deterministic key, and rewrites the block's media
// reference to the durable URL. A failed fetch or store leaves the block
// with its last known URL; it never aborts the rest of the page.
func (s *Scope) Backup(ctx context.Context, block *models.ContentBlock) {
	idx := s.NextIndex()

	if block.MediaURL == "" {
		return
	}

	data, err := s.m.fetcher.FetchURL(ctx, block.MediaURL)
	if err != nil {
		s.m.logger.Warn("Media fetch failed, keeping source URL",
			logger.String("page_id", s.pageID),
			logger.Int("media_index", idx),
			logger.Error(err),
		)
		return
	}

	ext := extensionOf(block.MediaURL)
	key := s.m.objectKey(s.pageID, idx, ext)
	durableURL, err := s.m.store.Put(ctx, key, data, mime.TypeByExtension(ext))
	if err != nil {
		s.m.logger.Warn("Media store failed, keeping source URL",
			logger.String("page_id", s.pageID),
			logger.String("key", key),
			logger.Error(err),
		)
		return
	}

	// The durable URL carries no signing token; dropping the query part
	// of the transient form happens implicitly here.
	block.MediaURL = durableURL
}

// objectKey derives the storage key for one media object. The key depends
// only on (page id, index, extension), so a retried page overwrites the
// same objects instead of accumulating new ones.
func (m *BackupManager) objectKey(pageID string, index int, ext string) string {
	key := fmt.Sprintf("%s_%d%s", pageID, index, ext)
	if m.prefix != "" {
		return m.prefix + "/" + key
	}
	return key
}

// extensionOf extracts the original file extension from a media URL,
// ignoring any signing query parameters.
func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".bin"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return ".bin"
	}
	return ext
}
