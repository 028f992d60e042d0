package domain

import "time"

// RunState is the terminal state of a sync run that produced a report.
// A fatal error aborts the run with no report and an untouched
// watermark.
type RunState string

const (
	// RunCommitted means every fetched item was processed and written.
	RunCommitted RunState = "committed"

	// RunPartial means some items failed; the watermark stops just
	// before the oldest unresolved item so the next run retries them.
	RunPartial RunState = "partial"
)

// FailureStage identifies where in the pipeline an item failed.
type FailureStage string

const (
	// StageFetch covers pagination and nested sub-fetch failures.
	StageFetch FailureStage = "fetch"

	// StageWrite covers relational upsert failures.
	StageWrite FailureStage = "write"
)

// ItemFailure records a single unresolved item. Its timestamp bounds
// watermark advancement so the item is re-fetched next run.
type ItemFailure struct {
	// ID is the external identifier of the failed item.
	ID string

	// Timestamp is the item's creation time.
	Timestamp time.Time

	// Stage is where the failure occurred.
	Stage FailureStage

	// Err is the failure detail.
	Err error
}

// WriteReport is the per-item outcome of a batch write.
type WriteReport struct {
	// Written counts records committed to both stores.
	Written int

	// VectorPending lists record IDs committed relationally but awaiting
	// a vector upsert. They are retried by reconciliation, not re-fetched.
	VectorPending []string

	// Failures lists records whose relational upsert failed.
	Failures []ItemFailure
}

// ReconcileReport is the outcome of a reconciliation pass.
type ReconcileReport struct {
	// Resolved counts vector-pending records successfully upserted.
	Resolved int

	// Remaining counts records still pending after the pass.
	Remaining int
}

// RunReport summarises a sync run for the caller.
type RunReport struct {
	// RunID uniquely identifies this invocation.
	RunID string

	// State is the terminal run state.
	State RunState

	// ItemsProcessed counts canonical records committed this run.
	ItemsProcessed int

	// ItemsSkipped counts items dropped by validation. Skipped items are
	// not retried until the source data changes.
	ItemsSkipped int

	// Failures lists unresolved items that bound the new watermark.
	Failures []ItemFailure

	// VectorPending lists record IDs awaiting reconciliation.
	VectorPending []string

	// OldWatermark is the watermark the run started from.
	OldWatermark time.Time

	// NewWatermark is the watermark committed by the run. Never earlier
	// than OldWatermark.
	NewWatermark time.Time

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run settled.
	FinishedAt time.Time
}

// SyncStatus is a point-in-time snapshot of an active run.
type SyncStatus struct {
	// Running reports whether a run is in flight.
	Running bool

	// State is the current pipeline phase.
	State string

	// ItemsProcessed counts records written so far.
	ItemsProcessed int

	// ErrorCount counts item-level failures so far.
	ErrorCount int
}
