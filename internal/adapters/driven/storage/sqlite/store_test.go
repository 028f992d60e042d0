package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testPost(id string) domain.Post {
	return domain.Post{
		ID:           id,
		Caption:      "caption " + id,
		MediaType:    "IMAGE",
		MediaURL:     "https://cdn.example.com/" + id + ".jpg",
		Permalink:    "https://example.com/p/" + id,
		Timestamp:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		LikeCount:    10,
		CommentCount: 2,
	}
}

func testComment(id, postID string) domain.Comment {
	return domain.Comment{
		ID:        id,
		PostID:    postID,
		Text:      "comment " + id,
		Username:  "alice",
		Timestamp: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	posts, comments, err := store.RelationalStore().Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, posts)
	assert.Equal(t, 0, comments)
}

func TestRelationalStore_UpsertPostsIdempotent(t *testing.T) {
	store := newTestStore(t)
	rel := store.RelationalStore().(*relationalStore)
	ctx := context.Background()

	post := testPost("p1")
	require.NoError(t, rel.UpsertPosts(ctx, []domain.Post{post}))

	// Counters refresh on re-upsert, the row count does not grow.
	post.LikeCount = 25
	post.CommentCount = 5
	require.NoError(t, rel.UpsertPosts(ctx, []domain.Post{post}))

	got, err := rel.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 25, got.LikeCount)
	assert.Equal(t, 5, got.CommentCount)
	assert.Equal(t, post.Caption, got.Caption)
	assert.True(t, got.Timestamp.Equal(post.Timestamp))

	posts, _, err := rel.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, posts)
}

func TestRelationalStore_UpsertCommentsPreservesReplied(t *testing.T) {
	store := newTestStore(t)
	rel := store.RelationalStore().(*relationalStore)
	ctx := context.Background()

	comment := testComment("c1", "p1")
	require.NoError(t, rel.UpsertComments(ctx, []domain.Comment{comment}))
	require.NoError(t, rel.SetReplied(ctx, "c1", true))

	// A re-sync carries Replied=false; the stored flag must survive.
	comment.Text = "edited"
	require.NoError(t, rel.UpsertComments(ctx, []domain.Comment{comment}))

	got, err := rel.GetComment(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.Replied)
	assert.Equal(t, "edited", got.Text)
}

func TestRelationalStore_SetRepliedUnknownComment(t *testing.T) {
	store := newTestStore(t)
	rel := store.RelationalStore().(*relationalStore)

	err := rel.SetReplied(context.Background(), "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRelationalStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	rel := store.RelationalStore()
	ctx := context.Background()

	_, err := rel.GetMetadata(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, rel.SetMetadata(ctx, "cursor", "abc"))
	require.NoError(t, rel.SetMetadata(ctx, "cursor", "def"))

	value, err := rel.GetMetadata(ctx, "cursor")
	require.NoError(t, err)
	assert.Equal(t, "def", value)
}

func TestRelationalStore_VectorPendingLifecycle(t *testing.T) {
	store := newTestStore(t)
	rel := store.RelationalStore()
	ctx := context.Background()

	require.NoError(t, rel.UpsertPosts(ctx, []domain.Post{testPost("p1")}))
	require.NoError(t, rel.UpsertComments(ctx, []domain.Comment{
		testComment("c1", "p1"),
		testComment("c2", "p1"),
	}))

	require.NoError(t, rel.MarkVectorPending(ctx, "p1"))
	require.NoError(t, rel.MarkVectorPending(ctx, "c2"))

	posts, comments, err := rel.ListVectorPending(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, comments, 1)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "c2", comments[0].ID)

	require.NoError(t, rel.ClearVectorPending(ctx, "p1"))
	require.NoError(t, rel.ClearVectorPending(ctx, "c2"))

	posts, comments, err = rel.ListVectorPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Empty(t, comments)
}

func TestRelationalStore_PendingSurvivesReUpsert(t *testing.T) {
	store := newTestStore(t)
	rel := store.RelationalStore()
	ctx := context.Background()

	require.NoError(t, rel.UpsertPosts(ctx, []domain.Post{testPost("p1")}))
	require.NoError(t, rel.MarkVectorPending(ctx, "p1"))

	require.NoError(t, rel.UpsertPosts(ctx, []domain.Post{testPost("p1")}))

	posts, _, err := rel.ListVectorPending(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
}

func TestWatermarkStore_DefaultsToEpoch(t *testing.T) {
	store := newTestStore(t)

	got, err := store.WatermarkStore().Read(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equal(domain.EpochWatermark()))
}

func TestWatermarkStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	marks := store.WatermarkStore()
	ctx := context.Background()

	want := time.Date(2024, 6, 15, 8, 30, 45, 0, time.UTC)
	require.NoError(t, marks.Write(ctx, want))

	got, err := marks.Read(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	// Advancing overwrites in place.
	later := want.Add(time.Hour)
	require.NoError(t, marks.Write(ctx, later))

	got, err = marks.Read(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(later))
}
