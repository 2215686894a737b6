package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDirectoryCache struct {
	client *redis.Client
	prefix string
}

// NewRedisDirectoryCache wraps an existing client; the API shares one
// client between the cache and the presence store.
func NewRedisDirectoryCache(client *redis.Client, prefix string) *RedisDirectoryCache {
	return &RedisDirectoryCache{client: client, prefix: prefix}
}

// BuildKey returns <prefix>:v<version>:<sha1(fingerprint)>.
func (c *RedisDirectoryCache) BuildKey(version int64, fingerprint string) string {
	return BuildKey(c.prefix, version, fingerprint)
}

// BuildKey formats a versioned cache key.
func BuildKey(prefix string, version int64, fingerprint string) string {
	sum := sha1.Sum([]byte(fingerprint))
	return fmt.Sprintf("%s:v%d:%s", prefix, version, hex.EncodeToString(sum[:]))
}

func (c *RedisDirectoryCache) versionKey() string {
	return c.prefix + ":version"
}

func (c *RedisDirectoryCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get cache version: %w", err)
	}
	return v, nil
}

func (c *RedisDirectoryCache) BumpVersion(ctx context.Context) (int64, error) {
	v, err := c.client.Incr(ctx, c.versionKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump cache version: %w", err)
	}
	return v, nil
}

func (c *RedisDirectoryCache) Get(ctx context.Context, key string) (*DirectoryCacheResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result DirectoryCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisDirectoryCache) Set(ctx context.Context, key string, result *DirectoryCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisDirectoryCache) Close() error {
	return c.client.Close()
}
