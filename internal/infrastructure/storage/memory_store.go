package storage

import (
	"context"
	"sync"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// MemoryStore keeps records in process memory; nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	notify *notifier
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), notify: newNotifier()}
}

// Get implements ports.KeyValueStore.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(v), nil
}

// Set implements ports.KeyValueStore.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = clone(value)
	s.mu.Unlock()
	s.notify.publish(ports.StorageChange{Key: key, NewValue: clone(value)})
	return nil
}

// Delete implements ports.KeyValueStore.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	s.notify.publish(ports.StorageChange{Key: key})
	return nil
}

// Subscribe implements ports.KeyValueStore.
func (s *MemoryStore) Subscribe(fn func(ports.StorageChange)) func() {
	return s.notify.subscribe(fn)
}

// Close implements ports.KeyValueStore.
func (s *MemoryStore) Close() error {
	return nil
}

var _ ports.KeyValueStore = (*MemoryStore)(nil)
