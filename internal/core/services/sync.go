// Package services contains the core orchestration logic driving the
// pipeline: fetch, transform, write, advance the watermark.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
	"github.com/meridian-labs/gramsync/internal/core/ports/driving"
	"github.com/meridian-labs/gramsync/internal/logger"
)

// Pipeline phases reported through Status.
const (
	phaseIdle         = "idle"
	phaseFetching     = "fetching"
	phaseTransforming = "transforming"
	phaseWriting      = "writing"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncRunner = (*SyncOrchestrator)(nil)

// SyncOrchestrator runs the incremental sync cycle. A single instance
// admits one run at a time; overlapping invocations fail fast with
// domain.ErrSyncInProgress.
type SyncOrchestrator struct {
	fetcher     driven.ContentFetcher
	transformer driven.RecordTransformer
	writer      driven.BatchWriter
	watermarks  driven.WatermarkStore

	lookback time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	status  domain.SyncStatus
}

// Option configures the orchestrator.
type Option func(*SyncOrchestrator)

// WithLookback sets the default lookback window applied when a run does
// not override it.
func WithLookback(d time.Duration) Option {
	return func(s *SyncOrchestrator) { s.lookback = d }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SyncOrchestrator) { s.now = now }
}

// NewSyncOrchestrator wires the pipeline stages together.
func NewSyncOrchestrator(
	fetcher driven.ContentFetcher,
	transformer driven.RecordTransformer,
	writer driven.BatchWriter,
	watermarks driven.WatermarkStore,
	opts ...Option,
) *SyncOrchestrator {
	s := &SyncOrchestrator{
		fetcher:     fetcher,
		transformer: transformer,
		writer:      writer,
		watermarks:  watermarks,
		now:         time.Now,
		status:      domain.SyncStatus{State: phaseIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sync cycle. The watermark is read once at the start,
// advanced at most once at the end, and left untouched on fatal error.
func (s *SyncOrchestrator) Run(ctx context.Context, opts driving.RunOptions) (*domain.RunReport, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	start := s.now().UTC()
	runID := uuid.NewString()

	oldWatermark, err := s.watermarks.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}

	lookback := opts.Lookback
	if lookback == 0 {
		lookback = s.lookback
	}

	logger.Info("Run %s: syncing since %s (lookback %s)", runID, oldWatermark.Format(time.RFC3339), lookback)
	s.setPhase(phaseFetching)

	items, maxSeen, failures, err := s.collect(ctx, oldWatermark, lookback)
	if err != nil {
		return nil, err
	}

	s.setPhase(phaseTransforming)
	var records []domain.CanonicalRecord
	skipped := 0
	for i := range items {
		recs, terr := s.transformer.Transform(&items[i])
		if terr != nil {
			// Malformed at the source; the watermark advances past it so
			// it is not retried until the source data changes.
			logger.Warn("Skipping item %s: %v", items[i].Post.ID, terr)
			skipped++
			continue
		}
		records = append(records, recs...)
	}

	s.setPhase(phaseWriting)
	writeReport, err := s.writer.WriteBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("write batch: %w", err)
	}
	failures = append(failures, writeReport.Failures...)
	s.observe(writeReport.Written, len(failures))

	report := &domain.RunReport{
		RunID:          runID,
		ItemsProcessed: writeReport.Written,
		ItemsSkipped:   skipped,
		Failures:       failures,
		VectorPending:  writeReport.VectorPending,
		OldWatermark:   oldWatermark,
		StartedAt:      start,
	}

	if len(failures) == 0 {
		report.State = domain.RunCommitted
		report.NewWatermark = committedWatermark(oldWatermark, start, maxSeen)
	} else {
		report.State = domain.RunPartial
		report.NewWatermark = partialWatermark(oldWatermark, failures)
	}

	if err := s.watermarks.Write(ctx, report.NewWatermark); err != nil {
		return nil, fmt.Errorf("write watermark: %w", err)
	}

	report.FinishedAt = s.now().UTC()
	logger.Info("Run %s: %s, %d written, %d skipped, %d failed, watermark %s -> %s",
		runID, report.State, report.ItemsProcessed, report.ItemsSkipped, len(report.Failures),
		report.OldWatermark.Format(time.RFC3339), report.NewWatermark.Format(time.RFC3339))
	return report, nil
}

// collect drains the fetch channels. Per-item fetch failures become run
// failures; anything else is fatal.
func (s *SyncOrchestrator) collect(
	ctx context.Context,
	since time.Time,
	lookback time.Duration,
) (items []domain.RawItem, maxSeen time.Time, failures []domain.ItemFailure, err error) {
	itemCh, errCh := s.fetcher.FetchSince(ctx, since, lookback)

	for itemCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, time.Time{}, nil, ctx.Err()

		case item, ok := <-itemCh:
			if !ok {
				itemCh = nil
				continue
			}
			if ts := item.MaxTimestamp(); ts.After(maxSeen) {
				maxSeen = ts
			}
			items = append(items, item)

		case ferr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if ie, isItem := driven.AsItemError(ferr); isItem {
				logger.Warn("Fetch failure for %s: %v", ie.PostID, ie.Err)
				failures = append(failures, domain.ItemFailure{
					ID:        ie.PostID,
					Timestamp: ie.Timestamp,
					Stage:     domain.StageFetch,
					Err:       ie,
				})
				continue
			}
			return nil, time.Time{}, nil, fmt.Errorf("fetch: %w", ferr)
		}
	}

	return items, maxSeen, failures, nil
}

// Reconcile sweeps vector-pending records. Safe to run alongside a sync.
func (s *SyncOrchestrator) Reconcile(ctx context.Context) (*domain.ReconcileReport, error) {
	return s.writer.Reconcile(ctx)
}

// Status returns a snapshot of the current run.
func (s *SyncOrchestrator) Status(_ context.Context) (*domain.SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.status
	return &snapshot, nil
}

func (s *SyncOrchestrator) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return domain.ErrSyncInProgress
	}
	s.running = true
	s.status = domain.SyncStatus{Running: true, State: phaseFetching}
	return nil
}

func (s *SyncOrchestrator) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.status.Running = false
	s.status.State = phaseIdle
}

func (s *SyncOrchestrator) setPhase(phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = phase
}

func (s *SyncOrchestrator) observe(processed, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.ItemsProcessed = processed
	s.status.ErrorCount = errorCount
}

// committedWatermark is the newest timestamp seen, or the run's start
// time when the source returned nothing new, clamped so the watermark
// never moves backwards. A lookback re-fetch can commit a run whose
// only items predate the stored watermark.
func committedWatermark(old, start, maxSeen time.Time) time.Time {
	candidate := maxSeen
	if candidate.IsZero() {
		candidate = start
	}
	if candidate.Before(old) {
		return old
	}
	return candidate
}

// partialWatermark stops just before the oldest unresolved item so the
// next run re-fetches it, without ever moving backwards.
func partialWatermark(old time.Time, failures []domain.ItemFailure) time.Time {
	oldest := failures[0].Timestamp
	for _, f := range failures[1:] {
		if f.Timestamp.Before(oldest) {
			oldest = f.Timestamp
		}
	}
	candidate := oldest.Add(-domain.WatermarkEpsilon)
	if candidate.Before(old) {
		return old
	}
	return candidate
}
