// Package assets backs up transient source media URLs into durable object
// storage with deterministic per-page indexing.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Store is the durable object store media bytes are written to. Put
// returns the public URL of the stored object.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// HTTPStore writes objects to an S3-compatible storage endpoint over
// plain HTTP: PUT {base}/{bucket}/{key} with a bearer token.
type HTTPStore struct {
	baseURL string
	bucket  string
	token   string
	http    *http.Client
}

// HTTPStoreConfig holds object storage settings.
type HTTPStoreConfig struct {
	BaseURL string
	Bucket  string
	Token   string
	Timeout time.Duration
}

// NewHTTPStore creates an object store client.
func NewHTTPStore(cfg HTTPStoreConfig) *HTTPStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		bucket:  cfg.Bucket,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Put uploads data under key, overwriting any existing object. Overwrites
// keep retried pages idempotent: the key is a pure function of (page,
// index, extension), so a retry rewrites the same object.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("upload object: unexpected status %d", resp.StatusCode)
	}

	return url, nil
}
