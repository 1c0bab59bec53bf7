// Package events publishes content lifecycle events to Redis Streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/northpages/contentsync/internal/logger"
)

// StreamName is the Redis stream content events are appended to.
const StreamName = "contentsync:events"

// asyncPublishTimeout is the context timeout for async publish operations.
const asyncPublishTimeout = 5 * time.Second

// EventType identifies a content lifecycle event.
type EventType string

const (
	// ContentUpdated fires after a content item is created or re-normalized.
	ContentUpdated EventType = "content.updated"
	// ContentRemoved fires after a content item's status flips to removed.
	ContentRemoved EventType = "content.removed"
	// SyncCompleted fires after a full resync run finishes for a tenant.
	SyncCompleted EventType = "sync.completed"
)

// ContentEvent is the payload appended to the stream.
type ContentEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	EventType    EventType `json:"event_type"`
	TenantID     string    `json:"tenant_id"`
	SourcePageID string    `json:"source_page_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher publishes content events to Redis Streams. A nil Publisher is
// a no-op, so event publishing can stay feature-flagged.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates a new event publisher. Returns nil if client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{client: client, log: log}
}

// Publish appends an event to the stream.
func (p *Publisher) Publish(ctx context.Context, event ContentEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]any{"event": string(payload)},
	})
	if publishErr := result.Err(); publishErr != nil {
		p.log.Error("Failed to publish event",
			logger.String("event_type", string(event.EventType)),
			logger.String("tenant_id", event.TenantID),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	return nil
}

// PublishAsync publishes an event asynchronously. Errors are logged but
// not returned.
func (p *Publisher) PublishAsync(event ContentEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Error("Async publish failed",
				logger.String("event_type", string(event.EventType)),
				logger.Error(err),
			)
		}
	}()
}
