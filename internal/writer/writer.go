// Package writer commits canonical records to the relational and vector
// sinks. The relational store is authoritative: for every record the
// relational upsert must succeed before the vector upsert is attempted,
// and a vector failure is tracked as "vector pending" for the
// reconciliation pass rather than failing the item.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-labs/gramsync/internal/backoff"
	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
	"github.com/meridian-labs/gramsync/internal/logger"
)

// Ensure DualSinkWriter implements the interface.
var _ driven.BatchWriter = (*DualSinkWriter)(nil)

// DualSinkWriter writes records relational-first with item-level retry.
type DualSinkWriter struct {
	rel         driven.RelationalStore
	vec         driven.VectorStore
	embedder    driven.EmbeddingService
	transformer driven.RecordTransformer
	retry       backoff.Policy
	sleep       backoff.Sleeper
}

// Option configures the writer.
type Option func(*DualSinkWriter)

// WithRetry overrides the item-level retry policy.
func WithRetry(p backoff.Policy) Option {
	return func(w *DualSinkWriter) { w.retry = p }
}

// WithSleeper injects the sleep function, for tests.
func WithSleeper(s backoff.Sleeper) Option {
	return func(w *DualSinkWriter) { w.sleep = s }
}

// New creates a dual-sink writer. The transformer is needed by
// reconciliation to rebuild records from relational rows.
func New(
	rel driven.RelationalStore,
	vec driven.VectorStore,
	embedder driven.EmbeddingService,
	transformer driven.RecordTransformer,
	opts ...Option,
) *DualSinkWriter {
	w := &DualSinkWriter{
		rel:         rel,
		vec:         vec,
		embedder:    embedder,
		transformer: transformer,
		retry:       backoff.DefaultPolicy(),
		sleep:       backoff.Sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteBatch upserts each record into the relational store and, on
// success, embeds and upserts its chunks into the vector store. Safe to
// call repeatedly with the same records.
func (w *DualSinkWriter) WriteBatch(ctx context.Context, records []domain.CanonicalRecord) (*domain.WriteReport, error) {
	report := &domain.WriteReport{}

	for i := range records {
		rec := &records[i]

		if err := w.upsertRelational(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Relational upsert failed for %s: %v", rec.ID(), err)
			report.Failures = append(report.Failures, domain.ItemFailure{
				ID:        rec.ID(),
				Timestamp: rec.Timestamp(),
				Stage:     domain.StageWrite,
				Err:       fmt.Errorf("%w: %w", domain.ErrWriteConflict, err),
			})
			continue
		}

		if err := w.upsertVectors(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Relationally committed; defer the vector write to
			// reconciliation instead of re-fetching from the source.
			logger.Warn("Vector upsert failed for %s, marking pending: %v", rec.ID(), err)
			if markErr := w.rel.MarkVectorPending(ctx, rec.ID()); markErr != nil {
				return nil, fmt.Errorf("mark vector pending %s: %w", rec.ID(), markErr)
			}
			report.VectorPending = append(report.VectorPending, rec.ID())
			report.Written++
			continue
		}

		report.Written++
	}

	return report, nil
}

// Reconcile re-embeds and re-upserts only vector-pending records and
// clears the pending flag on success.
func (w *DualSinkWriter) Reconcile(ctx context.Context) (*domain.ReconcileReport, error) {
	posts, comments, err := w.rel.ListVectorPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vector pending: %w", err)
	}

	records := make([]domain.CanonicalRecord, 0, len(posts)+len(comments))
	for _, p := range posts {
		records = append(records, w.transformer.FromPost(p))
	}
	for _, c := range comments {
		records = append(records, w.transformer.FromComment(c))
	}

	report := &domain.ReconcileReport{}
	for i := range records {
		rec := &records[i]

		if err := w.upsertVectors(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Reconcile failed for %s: %v", rec.ID(), err)
			report.Remaining++
			continue
		}
		if err := w.rel.ClearVectorPending(ctx, rec.ID()); err != nil {
			return nil, fmt.Errorf("clear vector pending %s: %w", rec.ID(), err)
		}
		report.Resolved++
	}

	logger.Info("Reconciliation: %d resolved, %d remaining", report.Resolved, report.Remaining)
	return report, nil
}

// upsertRelational writes the record's row with item-level retry.
func (w *DualSinkWriter) upsertRelational(ctx context.Context, rec *domain.CanonicalRecord) error {
	return w.withRetry(ctx, func() error {
		switch rec.Kind {
		case domain.KindPost:
			return w.rel.UpsertPosts(ctx, []domain.Post{*rec.Post})
		case domain.KindComment, domain.KindReply:
			return w.rel.UpsertComments(ctx, []domain.Comment{*rec.Comment})
		default:
			return fmt.Errorf("unknown record kind %q: %w", rec.Kind, domain.ErrInvalidInput)
		}
	})
}

// upsertVectors embeds the record's chunks and upserts them. Records
// with no chunks (empty cleaned text) have nothing to embed.
func (w *DualSinkWriter) upsertVectors(ctx context.Context, rec *domain.CanonicalRecord) error {
	if len(rec.Chunks) == 0 {
		return nil
	}

	texts := make([]string, len(rec.Chunks))
	for i, ch := range rec.Chunks {
		texts[i] = ch.Text
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(rec.Chunks) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(rec.Chunks))
	}

	embeddings := make([]domain.EmbeddingRecord, len(rec.Chunks))
	for i, ch := range rec.Chunks {
		embeddings[i] = domain.EmbeddingRecord{
			ID:       ch.Key,
			Vector:   vectors[i],
			Metadata: metadataFor(rec, ch),
		}
	}

	return w.withRetry(ctx, func() error {
		return w.vec.Upsert(ctx, embeddings)
	})
}

// withRetry runs op with the writer's item-level retry policy.
func (w *DualSinkWriter) withRetry(ctx context.Context, op func() error) error {
	attempt := 0
	for {
		err := op()
		if err == nil {
			return nil
		}

		attempt++
		delay, ok := w.retry.Delay(attempt)
		if !ok {
			return err
		}
		if sleepErr := w.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
}

// metadataFor builds the filterable metadata mapping for a chunk.
func metadataFor(rec *domain.CanonicalRecord, ch domain.TextChunk) map[string]any {
	md := map[string]any{
		"type":      string(rec.Kind),
		"timestamp": rec.Timestamp().Format(time.RFC3339),
		"text":      ch.Text,
	}

	switch rec.Kind {
	case domain.KindPost:
		md["likes"] = rec.Post.LikeCount
		md["comments"] = rec.Post.CommentCount
	case domain.KindComment, domain.KindReply:
		md["post_id"] = rec.Comment.PostID
		md["username"] = rec.Comment.Username
		if rec.Comment.ParentCommentID != "" {
			md["parent_comment_id"] = rec.Comment.ParentCommentID
		}
	}

	if len(rec.Chunks) > 1 {
		md["chunk"] = ch.Index
	}
	return md
}
