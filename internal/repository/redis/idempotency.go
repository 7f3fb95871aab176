// Package redis stores payment idempotency records in Redis so retries that
// land on different instances see the same outcome.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/redis/go-redis/v9"
)

// pending marks a reserved key whose outcome has not been recorded yet.
const pending = "\x00pending"

type idempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewIdempotencyStore wraps client. Keys are stored under keyPrefix.
func NewIdempotencyStore(client *redis.Client, keyPrefix string) repository.IdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "market:idem"
	}
	return &idempotencyStore{client: client, keyPrefix: keyPrefix}
}

// NewClient parses a redis:// URL and checks the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *idempotencyStore) key(k string) string {
	return s.keyPrefix + ":" + k
}

func (s *idempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pending, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (s *idempotencyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

func (s *idempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency result: %w", err)
	}
	if string(val) == pending {
		return nil, nil
	}
	return val, nil
}

func (s *idempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
