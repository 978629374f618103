package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps the fields of a session group in one hash, so a write
// to any field refreshes the sliding TTL of the whole group.
// A zero TTL keeps keys forever.
type RedisStorage struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	group, field := splitKey(key)
	data, err := r.client.HGet(ctx, group, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	group, field := splitKey(key)
	ttl := r.ttl()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, group, field, value)
		if ttl > 0 {
			pipe.Expire(ctx, group, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes fields; Redis drops a group once its last field is gone.
func (r *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fields := make(map[string][]string)
	for _, key := range keys {
		group, field := splitKey(key)
		fields[group] = append(fields[group], field)
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for group, f := range fields {
			pipe.HDel(ctx, group, f...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ttl spreads expirations so sessions created together do not expire together.
func (r *RedisStorage) ttl() time.Duration {
	if r.baseTTL <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}
