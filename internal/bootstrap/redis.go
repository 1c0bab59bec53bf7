package bootstrap

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northpages/contentsync/internal/config"
	"github.com/northpages/contentsync/internal/events"
	"github.com/northpages/contentsync/internal/logger"
	contentsync "github.com/northpages/contentsync/internal/sync"
)

const redisPingTimeout = 5 * time.Second

// SetupRedis connects to Redis and builds the sync locker and, when the
// events feature flag is on, the stream publisher. Redis being down is
// not fatal: without it syncs run unlocked and events are skipped, which
// beats refusing webhook traffic entirely.
func SetupRedis(cfg *config.Config, log logger.Logger) (*contentsync.Locker, *events.Publisher) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, sync locking and events disabled",
			logger.String("address", cfg.Redis.Address),
			logger.Error(err),
		)
		_ = client.Close()
		return nil, nil
	}

	locker := contentsync.NewLocker(client, cfg.Sync.LockTTL)

	var publisher *events.Publisher
	if cfg.Redis.Events {
		publisher = events.NewPublisher(client, log)
	}

	return locker, publisher
}
