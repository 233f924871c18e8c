// Package cache provides the redis-backed gamepass lookup cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
)

// RedisGamepassCache caches gamepass product lookups in redis.
type RedisGamepassCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisGamepassCache creates a cache from a redis URL.
func NewRedisGamepassCache(url string, logger *slog.Logger) (*RedisGamepassCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisGamepassCache{client: redis.NewClient(opt), logger: logger}, nil
}

func key(gamepassID int64) string {
	return fmt.Sprintf("gamepass:%d", gamepassID)
}

// Get returns the cached product, or (nil, nil) on a miss.
func (c *RedisGamepassCache) Get(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error) {
	val, err := c.client.Get(ctx, key(gamepassID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		c.logger.Warn("gamepass cache read failed", "gamepass_id", gamepassID, "error", err)
		return nil, err
	}
	var gp order.GamepassProduct
	if err := json.Unmarshal([]byte(val), &gp); err != nil {
		return nil, err
	}
	return &gp, nil
}

// Set stores the product for ttl.
func (c *RedisGamepassCache) Set(ctx context.Context, gp *order.GamepassProduct, ttl time.Duration) error {
	payload, err := json.Marshal(gp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(gp.ID), payload, ttl).Err()
}
