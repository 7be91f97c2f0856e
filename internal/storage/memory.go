// internal/storage/memory.go
package storage

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	prefix string
	data   map[string][]byte
}

func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{prefix: prefix, data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[prefixed(s.prefix, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[prefixed(s.prefix, key)] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, prefixed(s.prefix, key))
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
