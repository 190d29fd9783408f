package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a checkpoint outlives its last write.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps checkpoints in Redis.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a store on the given client. A ttl <= 0 uses DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Get retrieves the checkpoint for key.
func (s *RedisStore) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe("get", "miss")
			return nil, ErrNotFound
		}
		observe("get", "error")
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		observe("get", "error")
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	observe("get", "hit")
	return &entry, nil
}

// Set stores entry under key and refreshes its TTL.
func (s *RedisStore) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("checkpoint entry cannot be nil")
	}

	stored := *entry
	if stored.SavedAt.IsZero() {
		stored.SavedAt = time.Now()
	}

	data, err := json.Marshal(stored)
	if err != nil {
		observe("set", "error")
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := s.redis.Set(ctx, key.String(), data, s.ttl).Err(); err != nil {
		observe("set", "error")
		return fmt.Errorf("redis set: %w", err)
	}

	observe("set", "ok")
	return nil
}

// Delete removes the checkpoint for key.
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		observe("delete", "error")
		return fmt.Errorf("redis del: %w", err)
	}

	observe("delete", "ok")
	return nil
}

func observe(operation, result string) {
	metrics.CheckpointOpsTotal.WithLabelValues("redis", operation, result).Inc()
}
