package driven

import (
	"context"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// BatchWriter commits canonical records to both sinks. For each record
// the relational upsert must succeed before any vector upsert is
// attempted: the relational store is authoritative, vectors are derived
// and re-creatable.
type BatchWriter interface {
	// WriteBatch upserts records into the relational store and their
	// chunks into the vector store. Safe to call repeatedly with the
	// same records. A non-nil error is fatal to the run; per-item
	// failures are reported in the WriteReport instead.
	WriteBatch(ctx context.Context, records []domain.CanonicalRecord) (*domain.WriteReport, error)

	// Reconcile re-embeds and re-upserts only vector-pending records,
	// clearing the pending flag on success.
	Reconcile(ctx context.Context) (*domain.ReconcileReport, error)
}
