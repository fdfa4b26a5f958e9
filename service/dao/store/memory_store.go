package store

import (
	"context"
	"sync"

	"github.com/viant/procflux/service/dao"
)

// MemoryStore keeps *T values keyed by K. Values are shared, not copied:
// callers mutating a loaded value coordinate among themselves or use Update.
type MemoryStore[K comparable, T any] struct {
	mu      sync.RWMutex
	records map[K]*T
	keyOf   func(*T) K
}

var _ dao.Service[string, struct{}] = (*MemoryStore[string, struct{}])(nil)

// NewMemoryStore creates a store; keyOf extracts the key of a value.
func NewMemoryStore[K comparable, T any](keyOf func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{records: map[K]*T{}, keyOf: keyOf}
}

func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	s.mu.Lock()
	s.records[s.keyOf(v)] = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	v, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return v, nil
}

// Update runs fn on the stored value while holding the write lock.
func (s *MemoryStore[K, T]) Update(_ context.Context, key K, fn func(v *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.records[key]; ok {
		return fn(v)
	}
	return dao.ErrNotFound
}

func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	_, err := s.Take(key)
	return err
}

// Take removes key and returns its value.
func (s *MemoryStore[K, T]) Take(key K) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	delete(s.records, key)
	return v, nil
}

func (s *MemoryStore[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// List returns every value; parameters are ignored.
func (s *MemoryStore[K, T]) List(_ context.Context, _ ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		ret = append(ret, v)
	}
	return ret, nil
}
