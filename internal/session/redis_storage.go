package session

import (
	"context"
	"fmt"
	"time"

	"boxoffice/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

// RedisStorage persists one tab's keys in a Redis hash so a restarted
// checkout process with the same tab id picks up where it left off
type RedisStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStorage(client *redis.Client, tabID string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client: client,
		key:    constants.BuildSessionKey(tabID),
		ttl:    ttl,
	}
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.HGet(ctx, r.key, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("session get error: %w", err)
	}
	return val, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session set error: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("session delete error: %w", err)
	}
	return nil
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.client.HKeys(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("session keys error: %w", err)
	}
	return keys, nil
}
