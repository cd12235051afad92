package database

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterOpTimeout = 2 * time.Second

// LimiterStorage keeps fiber limiter counters in Redis so every portal node
// spends the same request budget. It implements fiber.Storage.
type LimiterStorage struct {
	client *redis.Client
	prefix string
}

// NewLimiterStorage stores counters under prefix. The client stays owned by
// the caller.
func NewLimiterStorage(client *redis.Client, prefix string) *LimiterStorage {
	return &LimiterStorage{client: client, prefix: prefix}
}

// Get returns nil without error for unknown keys.
func (s *LimiterStorage) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), limiterOpTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return value, err
}

func (s *LimiterStorage) Set(key string, value []byte, exp time.Duration) error {
	if key == "" || len(value) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), limiterOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+key, value, exp).Err()
}

func (s *LimiterStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), limiterOpTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Reset drops every counter under the prefix.
func (s *LimiterStorage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), limiterOpTimeout)
	defer cancel()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op.
func (s *LimiterStorage) Close() error {
	return nil
}
