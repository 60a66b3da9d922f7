package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// MemoryStore implements the BlobStore interface in process memory, for tests
// and embedding.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPut, when set, makes Put return the given error. Lets tests exercise
	// blob-write failure paths.
	FailPut error
	// FailDelete holds keys whose Delete should fail, for partial-failure tests.
	FailDelete map[string]error
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

var _ rulesrepo.BlobStore = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx context.Context, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPut != nil {
		return s.FailPut
	}
	s.objects[key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), content...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailDelete[key]; ok {
		return err
	}
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	delete(s.objects, key)
	return nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
