package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed item. Items failing with
	// ErrInvalidInput are skipped and not retried until the source changes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates the API rate limit was exceeded and the
	// retry budget is exhausted. Aborts the run without advancing the
	// watermark.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the source rejected the access token.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or rejected the input.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSyncInProgress indicates a run is already active. Runs never
	// overlap against the same watermark.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrWriteConflict indicates a store-level upsert failure. Retried at
	// item granularity, then deferred to reconciliation or the next run.
	ErrWriteConflict = errors.New("write conflict")
)
