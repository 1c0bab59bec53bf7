// Package source is the HTTP client for the external CMS document API.
// API credentials are per tenant and passed per call.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/northpages/contentsync/internal/logger"
)

// ErrObjectNotFound is returned when the source reports that a page or
// block no longer exists. Deletion-implying webhook handlers treat it as
// corroboration rather than failure.
var ErrObjectNotFound = errors.New("source object not found")

// APIError is a non-2xx response from the source API.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("source api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Config holds the shared source API settings.
type Config struct {
	BaseURL string
	Version string
	Timeout time.Duration
}

// Client talks to the source document API.
type Client struct {
	baseURL string
	version string
	http    *http.Client
	logger  logger.Logger
}

// NewClient creates a source API client.
func NewClient(cfg Config, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		version: cfg.Version,
		http:    &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// PageList is one page of database query results, newest-first.
type PageList struct {
	Results    []*Page `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// BlockList is one page of block-children results.
type BlockList struct {
	Results    []*Block `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor"`
}

// QueryDatabase fetches one page of database entries sorted newest-first
// by last edited time. Pass an empty cursor for the first page.
func (c *Client) QueryDatabase(ctx context.Context, apiKey, databaseID, cursor string, pageSize int) (*PageList, error) {
	body := map[string]any{
		"sorts": []map[string]string{
			{"timestamp": "last_edited_time", "direction": "descending"},
		},
	}
	if pageSize > 0 {
		body["page_size"] = pageSize
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}

	var list PageList
	path := fmt.Sprintf("/databases/%s/query", databaseID)
	if err := c.do(ctx, http.MethodPost, path, apiKey, body, &list); err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	return &list, nil
}

// GetPage fetches a single page by id.
func (c *Client) GetPage(ctx context.Context, apiKey, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, apiKey, nil, &page); err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}
	return &page, nil
}

// GetBlockChildren fetches one page of a block's direct children.
func (c *Client) GetBlockChildren(ctx context.Context, apiKey, blockID, cursor string) (*BlockList, error) {
	path := "/blocks/" + blockID + "/children"
	if cursor != "" {
		path += "?start_cursor=" + cursor
	}

	var list BlockList
	if err := c.do(ctx, http.MethodGet, path, apiKey, nil, &list); err != nil {
		return nil, fmt.Errorf("get block children %s: %w", blockID, err)
	}
	return &list, nil
}

// FetchBlockTree fetches all children of the given block and recursively
// descends into any child that has children of its own, merging them in.
// The returned slice is the fully populated block forest for one page.
func (c *Client) FetchBlockTree(ctx context.Context, apiKey, blockID string) ([]*Block, error) {
	var blocks []*Block
	cursor := ""
	for {
		list, err := c.GetBlockChildren(ctx, apiKey, blockID, cursor)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			break
		}
		cursor = list.NextCursor
	}

	for _, b := range blocks {
		if !b.HasChildren {
			continue
		}
		children, err := c.FetchBlockTree(ctx, apiKey, b.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch children of %s: %w", b.ID, err)
		}
		b.Children = children
	}

	return blocks, nil
}

// FetchURL downloads raw bytes from a signed media URL. The media host is
// outside the API surface, so no auth header is attached.
func (c *Client) FetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Notion-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(resp.Body)
	if err == nil {
		_ = json.Unmarshal(data, apiErr)
	}

	c.logger.Debug("Source API error",
		logger.Int("status", resp.StatusCode),
		logger.String("code", apiErr.Code),
	)

	if apiErr.Code == "object_not_found" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, apiErr.Message)
	}
	return apiErr
}
