package bootstrap

import (
	"fmt"

	"github.com/northpages/contentsync/internal/config"
	"github.com/northpages/contentsync/internal/embedding"
	"github.com/northpages/contentsync/internal/logger"
)

// SetupSearch creates the Elasticsearch vector index writer when search
// indexing is enabled. Returns nil when disabled; the embedding worker
// then only writes vectors to the content rows.
func SetupSearch(cfg *config.Config, log logger.Logger) (*embedding.VectorIndex, error) {
	if !cfg.Search.Enabled {
		log.Info("Search indexing disabled")
		return nil, nil
	}

	index, err := embedding.NewVectorIndex(embedding.VectorIndexConfig{
		URL:        cfg.Search.URL,
		Username:   cfg.Search.Username,
		Password:   cfg.Search.Password,
		Dimensions: cfg.Embedding.Dimensions,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return index, nil
}
