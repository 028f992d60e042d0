package driven

import (
	"context"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// RelationalStore is the authoritative structured store. All upserts are
// keyed by external ID and idempotent: existing rows are updated, new
// rows inserted, nothing is ever deleted by the pipeline.
type RelationalStore interface {
	// UpsertPosts inserts or updates posts. Engagement counters are
	// refreshed on update.
	UpsertPosts(ctx context.Context, posts []domain.Post) error

	// UpsertComments inserts or updates comments. The replied flag is
	// preserved on update; it belongs to the downstream consumer.
	UpsertComments(ctx context.Context, comments []domain.Comment) error

	// GetMetadata reads a pipeline metadata value.
	// Returns domain.ErrNotFound when the key is unset.
	GetMetadata(ctx context.Context, key string) (string, error)

	// SetMetadata atomically upserts a pipeline metadata value.
	SetMetadata(ctx context.Context, key, value string) error

	// MarkVectorPending flags a record as relationally committed but
	// awaiting a vector upsert.
	MarkVectorPending(ctx context.Context, id string) error

	// ClearVectorPending removes the pending flag after a successful
	// vector upsert.
	ClearVectorPending(ctx context.Context, id string) error

	// ListVectorPending returns all records awaiting reconciliation.
	ListVectorPending(ctx context.Context) ([]domain.Post, []domain.Comment, error)

	// Counts returns the stored post and comment totals.
	Counts(ctx context.Context) (posts, comments int, err error)

	// Close releases resources.
	Close() error
}
