package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/newsroom/internal/logger"
)

// Tracker remembers every source URL the pipeline has accepted so the same
// link is rejected on later fetches, even after the item itself has been
// swept from the database.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewTracker(client *redis.Client, ttl time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (t *Tracker) key(workspaceID, sourceURL string) string {
	return fmt.Sprintf("seen:url:%s:%s", workspaceID, sourceURL)
}

// HasSeen reports whether the URL was accepted within the tracker's TTL.
// Redis errors are logged and treated as "not seen" so a cache outage
// degrades to extra database lookups rather than dropped items.
func (t *Tracker) HasSeen(ctx context.Context, workspaceID, sourceURL string) bool {
	key := t.key(workspaceID, sourceURL)

	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		t.logger.Error("Redis error checking seen URL",
			logger.String("workspace_id", workspaceID),
			logger.String("source_url", sourceURL),
			logger.Error(err),
		)
		return false
	}

	return exists == 1
}

func (t *Tracker) MarkSeen(ctx context.Context, workspaceID, sourceURL string) error {
	key := t.key(workspaceID, sourceURL)

	err := t.client.Set(ctx, key, "1", t.ttl).Err()
	if err != nil {
		t.logger.Error("Redis error marking URL as seen",
			logger.String("workspace_id", workspaceID),
			logger.String("source_url", sourceURL),
			logger.Duration("ttl", t.ttl),
			logger.Error(err),
		)
		return err
	}

	t.logger.Debug("URL marked as seen",
		logger.String("workspace_id", workspaceID),
		logger.String("redis_key", key),
	)

	return nil
}

func (t *Tracker) Clear(ctx context.Context, workspaceID, sourceURL string) error {
	key := t.key(workspaceID, sourceURL)

	err := t.client.Del(ctx, key).Err()
	if err != nil {
		t.logger.Error("Redis error clearing seen URL",
			logger.String("workspace_id", workspaceID),
			logger.String("source_url", sourceURL),
			logger.Error(err),
		)
		return err
	}

	return nil
}

// FlushAll removes every seen-URL key. SCAN is used instead of FLUSHDB so
// other keyspaces in the same Redis database survive.
func (t *Tracker) FlushAll(ctx context.Context) error {
	t.logger.Info("Flushing all seen URL keys from Redis cache")

	pattern := "seen:url:*"
	var cursor uint64
	var deletedCount int

	for {
		var keys []string
		var err error
		const scanBatchSize = 100
		keys, cursor, err = t.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			t.logger.Error("Redis error scanning for keys",
				logger.String("pattern", pattern),
				logger.Error(err),
			)
			return fmt.Errorf("scan keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, delErr := t.client.Del(ctx, keys...).Result()
			if delErr != nil {
				t.logger.Error("Redis error deleting keys",
					logger.Int("key_count", len(keys)),
					logger.Error(delErr),
				)
				return fmt.Errorf("delete keys: %w", delErr)
			}
			deletedCount += int(deleted)
		}

		if cursor == 0 {
			break
		}
	}

	t.logger.Info("Flushed Redis cache",
		logger.Int("keys_deleted", deletedCount),
		logger.String("pattern", pattern),
	)

	return nil
}
