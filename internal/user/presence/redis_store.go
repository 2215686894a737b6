package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implements Store with one expiring key per online user.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed presence store.
func NewRedisStore(client *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = "presence"
	}
	return &redisStore{client: client, prefix: prefix}
}

// Redis key pattern:
// {prefix}:user:{user_id}   STRING "1" with TTL - user sent a heartbeat recently

func (s *redisStore) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", s.prefix, userID)
}

func (s *redisStore) MarkOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.userKey(userID), "1", ttl).Err()
}

func (s *redisStore) MarkOffline(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.userKey(userID)).Err()
}

func (s *redisStore) Online(ctx context.Context, userIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = s.userKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}
	for i, v := range vals {
		if v != nil {
			online[userIDs[i]] = true
		}
	}
	return online, nil
}
