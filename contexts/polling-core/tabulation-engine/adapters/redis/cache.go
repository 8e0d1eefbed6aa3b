package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	"choices/contexts/polling-core/tabulation-engine/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tally:poll:"

// Cache stores serialized tabulation results in Redis so API replicas share
// one materialized view per poll.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client: client,
		logger: logger,
	}
}

func (c *Cache) Get(ctx context.Context, pollID string) (entities.TabulationResult, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(pollID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.TabulationResult{}, false, nil
		}
		return entities.TabulationResult{}, false, c.logError("tally_cache_get_failed", err, pollID)
	}
	var result entities.TabulationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return entities.TabulationResult{}, false, c.logError("tally_cache_decode_failed", err, pollID)
	}
	return result, true, nil
}

func (c *Cache) Put(ctx context.Context, result entities.TabulationResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return c.logError("tally_cache_marshal_failed", err, result.PollID)
	}
	if err := c.client.Set(ctx, cacheKey(result.PollID), payload, ttl).Err(); err != nil {
		return c.logError("tally_cache_put_failed", err, result.PollID)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, pollID string) error {
	if err := c.client.Del(ctx, cacheKey(pollID)).Err(); err != nil {
		return c.logError("tally_cache_invalidate_failed", err, pollID)
	}
	return nil
}

func (c *Cache) logError(event string, err error, pollID string) error {
	c.logger.Error("tally cache operation failed",
		"event", event,
		"module", "polling-core/tabulation-engine",
		"layer", "adapter",
		"poll_id", strings.TrimSpace(pollID),
		"error", err.Error(),
	)
	return err
}

func cacheKey(pollID string) string {
	return keyPrefix + strings.TrimSpace(pollID)
}

var _ ports.ResultCache = (*Cache)(nil)
