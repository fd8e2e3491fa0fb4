package authflow

import (
	"context"
	"sync"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*ScopedStore)(nil)
)

// MemoryStore keeps values in a map
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// ScopedStore confines a shared Store to one client by prefixing keys
type ScopedStore struct {
	store Store
	scope string
}

// NewScopedStore wraps store so keys become "<scope>:<key>"
func NewScopedStore(store Store, scope string) *ScopedStore {
	return &ScopedStore{store: store, scope: scope}
}

func (s *ScopedStore) key(k string) string {
	if s.scope == "" {
		return k
	}
	return s.scope + ":" + k
}

func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.key(key))
}

func (s *ScopedStore) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.key(key), value)
}

func (s *ScopedStore) Remove(ctx context.Context, key string) error {
	return s.store.Remove(ctx, s.key(key))
}
