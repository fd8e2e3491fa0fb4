// Package redisstore keeps client token slots in Redis.
package redisstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store
const DefaultPrefix = "authflow:"

// Store implements authflow.Store. Keys are prefix + scope + ":" + key and
// expire after ttl when ttl is positive.
type Store struct {
	client redis.Cmdable
	prefix string
	scope  string
	ttl    time.Duration
}

// Option customizes a Store
type Option func(*Store)

// WithPrefix overrides DefaultPrefix
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithScope sets the client scope
func WithScope(scope string) Option {
	return func(s *Store) {
		if scope != "" {
			s.scope = scope
		}
	}
}

// WithTTL expires slots after ttl. Each Set refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New creates a Redis-backed token store.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		scope:  "default",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connect opens a client for addr and checks it responds
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to reach redis").
			WithMetadata(map[string]any{"addr": addr})
	}

	return client, nil
}

func (s *Store) key(key string) string {
	return s.prefix + s.scope + ":" + key
}

// Get implements authflow.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to read client token").
			WithMetadata(map[string]any{"key": s.key(key)})
	}
	return val, true, nil
}

// Set implements authflow.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to write client token").
			WithMetadata(map[string]any{"key": s.key(key)})
	}
	return nil
}

// Remove implements authflow.Store.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to remove client token").
			WithMetadata(map[string]any{"key": s.key(key)})
	}
	return nil
}
