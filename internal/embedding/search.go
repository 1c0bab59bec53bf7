package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
)

// VectorIndex writes computed embeddings into a per-tenant Elasticsearch
// index with a dense_vector mapping. A nil VectorIndex is a no-op so the
// search side stays feature-flagged.
type VectorIndex struct {
	client     *es.Client
	dimensions int
	logger     logger.Logger
}

// VectorIndexConfig holds Elasticsearch settings for the vector index.
type VectorIndexConfig struct {
	URL        string
	Username   string
	Password   string
	Dimensions int
}

// NewVectorIndex creates the vector index writer and verifies the
// connection.
func NewVectorIndex(cfg VectorIndexConfig, log logger.Logger) (*VectorIndex, error) {
	addresses := []string{cfg.URL}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		addresses = []string{"http://" + cfg.URL}
	}

	client, err := es.NewClient(es.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("ping elasticsearch: %s", res.String())
	}

	return &VectorIndex{client: client, dimensions: cfg.Dimensions, logger: log}, nil
}

// IndexName derives the per-tenant vector index name.
func IndexName(tenantSlug string) string {
	return strings.ToLower(strings.ReplaceAll(tenantSlug, "-", "_")) + "_content_vectors"
}

// EnsureIndex creates the tenant's vector index if it does not exist.
func (v *VectorIndex) EnsureIndex(ctx context.Context, tenantSlug string) error {
	if v == nil {
		return nil
	}
	name := IndexName(tenantSlug)

	exists, err := v.client.Indices.Exists([]string{name}, v.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	defer func() { _ = exists.Body.Close() }()
	if exists.StatusCode == 200 {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"content_item_id": map[string]any{"type": "keyword"},
				"tenant_id":       map[string]any{"type": "keyword"},
				"title":           map[string]any{"type": "text"},
				"text":            map[string]any{"type": "text"},
				"embedding": map[string]any{
					"type":       "dense_vector",
					"dims":       v.dimensions,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	res, err := v.client.Indices.Create(name,
		v.client.Indices.Create.WithContext(ctx),
		v.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", name, res.String())
	}

	v.logger.Info("Vector index created", logger.String("index", name))
	return nil
}

// IndexItem upserts one content item's vector document, keyed by the
// content item id so re-embedding overwrites in place.
func (v *VectorIndex) IndexItem(ctx context.Context, tenantSlug string, item *models.ContentItem, text string) error {
	if v == nil {
		return nil
	}

	doc := map[string]any{
		"content_item_id": item.ID,
		"tenant_id":       item.TenantID,
		"title":           item.Title,
		"text":            text,
		"embedding":       item.Embedding,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal vector doc: %w", err)
	}

	res, err := v.client.Index(IndexName(tenantSlug),
		bytes.NewReader(body),
		v.client.Index.WithContext(ctx),
		v.client.Index.WithDocumentID(item.ID),
	)
	if err != nil {
		return fmt.Errorf("index vector doc: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index vector doc: %s", res.String())
	}
	return nil
}
