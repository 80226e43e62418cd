package storage

import (
	"context"
	"errors"
	"sync"

	invoiceapp "github.com/sawi/backend/internal/application/invoice"
)

var _ invoiceapp.ArchiveStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in memory. It backs development setups
// without an object store, and tests.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStorage creates an empty MemoryObjectStorage
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{objects: make(map[string][]byte)}
}

// Upload stores a copy of data under key
func (s *MemoryObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Get returns the object stored under key
func (s *MemoryObjectStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}
