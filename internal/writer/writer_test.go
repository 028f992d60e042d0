package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/gramsync/internal/adapters/driven/storage/memory"
	"github.com/meridian-labs/gramsync/internal/backoff"
	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/transform"
)

// stubEmbedder returns a fixed vector per text.
type stubEmbedder struct {
	err   error
	calls int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int              { return 3 }
func (e *stubEmbedder) Ping(_ context.Context) error { return nil }
func (e *stubEmbedder) Close() error                 { return nil }

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func testRecords(t *testing.T) []domain.CanonicalRecord {
	t.Helper()
	tr := transform.New()
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	records, err := tr.Transform(&domain.RawItem{
		Post: domain.RawPost{ID: "p1", Caption: "Hello world", Timestamp: ts, LikeCount: 4},
		Comments: []domain.RawComment{
			{ID: "c1", PostID: "p1", Text: "Nice", Username: "alice", Timestamp: ts.Add(time.Minute)},
		},
	})
	require.NoError(t, err)
	return records
}

func newWriter(rel *memory.RelationalStore, vec *memory.VectorStore, emb *stubEmbedder) *DualSinkWriter {
	return New(rel, vec, emb, transform.New(),
		WithRetry(backoff.Policy{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxAttempts: 1}),
		WithSleeper(noSleep),
	)
}

func TestWriteBatch_CommitsBothSinks(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	w := newWriter(rel, vec, &stubEmbedder{})

	report, err := w.WriteBatch(context.Background(), testRecords(t))

	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Empty(t, report.Failures)
	assert.Empty(t, report.VectorPending)

	_, ok := rel.GetPost("p1")
	assert.True(t, ok)
	_, ok = rel.GetComment("c1")
	assert.True(t, ok)

	_, ok = vec.Get("p1")
	assert.True(t, ok)
	_, ok = vec.Get("c1")
	assert.True(t, ok)
}

func TestWriteBatch_VectorMetadata(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	w := newWriter(rel, vec, &stubEmbedder{})

	_, err := w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)

	post, _ := vec.Get("p1")
	assert.Equal(t, "post", post.Metadata["type"])
	assert.Equal(t, 4, post.Metadata["likes"])
	assert.Equal(t, "hello world", post.Metadata["text"])

	comment, _ := vec.Get("c1")
	assert.Equal(t, "comment", comment.Metadata["type"])
	assert.Equal(t, "p1", comment.Metadata["post_id"])
	assert.Equal(t, "alice", comment.Metadata["username"])
}

func TestWriteBatch_RelationalFailureSkipsVector(t *testing.T) {
	rel := memory.NewRelationalStore()
	rel.FailUpsertIDs = map[string]error{"p1": errors.New("disk full")}
	vec := memory.NewVectorStore()
	w := newWriter(rel, vec, &stubEmbedder{})

	report, err := w.WriteBatch(context.Background(), testRecords(t))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Written) // comment still commits
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "p1", report.Failures[0].ID)
	assert.Equal(t, domain.StageWrite, report.Failures[0].Stage)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrWriteConflict)

	// The failed record must never reach the vector store.
	_, ok := vec.Get("p1")
	assert.False(t, ok)
}

func TestWriteBatch_VectorFailureMarksPending(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	vec.FailIDs = map[string]error{"c1": errors.New("index unavailable")}
	w := newWriter(rel, vec, &stubEmbedder{})

	report, err := w.WriteBatch(context.Background(), testRecords(t))

	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Empty(t, report.Failures, "vector-pending records are not run failures")
	assert.Equal(t, []string{"c1"}, report.VectorPending)

	// Relationally committed, vector pending.
	_, ok := rel.GetComment("c1")
	assert.True(t, ok)
	assert.True(t, rel.Pending("c1"))
}

func TestWriteBatch_EmptyTextWritesNoVector(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	emb := &stubEmbedder{}
	w := newWriter(rel, vec, emb)

	tr := transform.New()
	records, err := tr.Transform(&domain.RawItem{
		Post: domain.RawPost{ID: "p2", Caption: "", MediaType: "IMAGE", Timestamp: time.Now().UTC()},
	})
	require.NoError(t, err)

	report, err := w.WriteBatch(context.Background(), records)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 0, emb.calls, "empty text must not be embedded")
	assert.Equal(t, 0, vec.Len())
}

func TestWriteBatch_Idempotent(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	w := newWriter(rel, vec, &stubEmbedder{})

	_, err := w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)
	first := vec.Len()

	_, err = w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)

	assert.Equal(t, first, vec.Len(), "rerun must not create additional records")
	posts, comments, _ := rel.Counts(context.Background())
	assert.Equal(t, 1, posts)
	assert.Equal(t, 1, comments)
}

func TestWriteBatch_PreservesRepliedFlag(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	w := newWriter(rel, vec, &stubEmbedder{})

	_, err := w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)

	rel.SetReplied("c1")

	_, err = w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)

	c, _ := rel.GetComment("c1")
	assert.True(t, c.Replied, "re-sync must not clobber the replied flag")
}

func TestReconcile_ResolvesPending(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	vec.FailIDs = map[string]error{"c1": errors.New("index unavailable")}
	w := newWriter(rel, vec, &stubEmbedder{})

	_, err := w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)
	require.True(t, rel.Pending("c1"))

	// Index recovers.
	vec.FailIDs = nil

	report, err := w.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 0, report.Remaining)
	assert.False(t, rel.Pending("c1"))
	_, ok := vec.Get("c1")
	assert.True(t, ok)
}

func TestReconcile_KeepsPendingOnFailure(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	vec.FailIDs = map[string]error{"c1": errors.New("index unavailable")}
	w := newWriter(rel, vec, &stubEmbedder{})

	_, err := w.WriteBatch(context.Background(), testRecords(t))
	require.NoError(t, err)

	report, err := w.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Resolved)
	assert.Equal(t, 1, report.Remaining)
	assert.True(t, rel.Pending("c1"))
}

func TestReconcile_NothingPending(t *testing.T) {
	rel := memory.NewRelationalStore()
	vec := memory.NewVectorStore()
	w := newWriter(rel, vec, &stubEmbedder{})

	report, err := w.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Resolved)
	assert.Equal(t, 0, report.Remaining)
}
