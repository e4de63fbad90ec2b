package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/andrew/topic-rag/pkg/errs"
)

// ParamStore is the key-value configuration store boundary. Values are
// strings; callers parse numbers themselves.
type ParamStore interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, value string) error
}

// RedisStore keeps parameters in Redis under rag/<app>/<name>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a ParamStore over the given Redis connection,
// namespacing keys by the deployment's app name.
func NewRedisStore(client *redis.Client, appName string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: fmt.Sprintf("rag/%s/", appName),
	}
}

// Get returns the value of a parameter. A missing key maps to ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("parameter %q: %w", name, errs.ErrNotFound)
		}
		return "", fmt.Errorf("failed to read parameter %q: %w", name, err)
	}
	return value, nil
}

// Put writes a parameter value, overwriting any previous one.
func (s *RedisStore) Put(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, s.prefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write parameter %q: %w", name, err)
	}
	return nil
}
