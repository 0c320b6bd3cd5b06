package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/voicelog/product-identity/models"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("registry cache miss")

// Cache fronts exact registry lookups.
type Cache interface {
	Get(ctx context.Context, userID, productKey string) (*models.UserRegistryEntry, error)
	Set(ctx context.Context, entry *models.UserRegistryEntry) error
	Delete(ctx context.Context, userID, productKey string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID, productKey string) (*models.UserRegistryEntry, error) {
	data, err := c.client.Get(ctx, cacheKey(userID, productKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var entry models.UserRegistryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, entry *models.UserRegistryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal registry entry: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(entry.UserID, entry.ProductKey), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, userID, productKey string) error {
	if err := c.client.Del(ctx, cacheKey(userID, productKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func cacheKey(userID, productKey string) string {
	return fmt.Sprintf("registry:%s:%s", userID, productKey)
}
