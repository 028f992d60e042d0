// Package driving defines the inbound ports: the contracts through which
// the CLI and scheduler drive the pipeline.
package driving

import (
	"context"
	"time"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// RunOptions tunes a single invocation.
type RunOptions struct {
	// Lookback widens the fetch boundary below the watermark so fresh
	// comments on older posts are picked up. Zero uses the configured
	// default.
	Lookback time.Duration
}

// SyncRunner is the stateless entry point of the pipeline.
type SyncRunner interface {
	// Run executes one sync cycle: fetch, transform, write, advance the
	// watermark. Returns a report in the committed and partial cases; a
	// non-nil error means the run aborted and the watermark is untouched.
	Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error)

	// Reconcile sweeps vector-pending records without re-fetching.
	Reconcile(ctx context.Context) (*domain.ReconcileReport, error)

	// Status returns a snapshot of the active run, if any.
	Status(ctx context.Context) (*domain.SyncStatus, error)
}
