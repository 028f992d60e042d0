package driven

import (
	"context"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// VectorStore holds embeddings plus filterable metadata. Upserts are
// last-write-wins; repeating an identical upsert is a no-op in effect.
type VectorStore interface {
	// Upsert writes embedding records keyed by chunk key.
	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
