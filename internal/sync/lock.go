package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSyncInProgress is returned when a full-sync run is already holding
// the tenant's lock. Runs for one tenant must be serialized; runs for
// different tenants proceed independently.
var ErrSyncInProgress = errors.New("sync already in progress for tenant")

// Locker serializes full-sync runs per tenant using a Redis SET NX lock
// with a TTL so a crashed run cannot hold a tenant locked forever.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker creates a sync locker. Returns nil if client is nil; a nil
// Locker grants every acquisition, leaving serialization to the caller.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, ttl: ttl}
}

// unlockScript releases the lock only if the caller still owns it.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// Acquire takes the tenant's sync lock. The returned release function is
// safe to call after the TTL expired: it only deletes the lock if this
// acquisition still owns it.
func (l *Locker) Acquire(ctx context.Context, tenantID string) (release func(), err error) {
	if l == nil {
		return func() {}, nil
	}

	key := "contentsync:synclock:" + tenantID
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}
