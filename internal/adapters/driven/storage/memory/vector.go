package memory

import (
	"context"
	"sync"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
type VectorStore struct {
	mu      sync.RWMutex
	records map[string]domain.EmbeddingRecord
	upserts int

	// FailIDs makes upserts containing the listed IDs fail, for tests.
	FailIDs map[string]error
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		records: make(map[string]domain.EmbeddingRecord),
	}
}

// Upsert writes embedding records keyed by chunk key (last-write-wins).
func (s *VectorStore) Upsert(_ context.Context, records []domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if s.FailIDs != nil {
			if err := s.FailIDs[r.ID]; err != nil {
				return err
			}
		}
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	s.upserts++
	return nil
}

// Ping validates the store is reachable.
func (s *VectorStore) Ping(_ context.Context) error { return nil }

// Close releases resources.
func (s *VectorStore) Close() error { return nil }

// Get returns a stored record, for test assertions.
func (s *VectorStore) Get(id string) (domain.EmbeddingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of stored records.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// UpsertCalls returns how many upsert batches were received.
func (s *VectorStore) UpsertCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}
