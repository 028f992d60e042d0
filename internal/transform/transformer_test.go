package transform

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

func testItem() *domain.RawItem {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.RawItem{
		Post: domain.RawPost{
			ID:           "post-1",
			Caption:      "Sunset at the beach \U0001F305",
			MediaType:    "IMAGE",
			Permalink:    "https://social.example/p/post-1",
			Timestamp:    ts,
			LikeCount:    10,
			CommentCount: 2,
		},
		Comments: []domain.RawComment{
			{ID: "c-1", Text: "Beautiful!", Username: "alice", Timestamp: ts.Add(time.Minute)},
			{ID: "c-2", ParentID: "c-1", Text: "Agreed", Username: "bob", Timestamp: ts.Add(2 * time.Minute)},
		},
	}
}

func TestTransform_ProducesPostAndCommentRecords(t *testing.T) {
	tr := New()

	records, err := tr.Transform(testItem())

	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.KindPost, records[0].Kind)
	assert.Equal(t, "post-1", records[0].ID())
	assert.Equal(t, "sunset at the beach", records[0].CleanText)

	assert.Equal(t, domain.KindComment, records[1].Kind)
	assert.Equal(t, "post-1", records[1].Comment.PostID)

	assert.Equal(t, domain.KindReply, records[2].Kind)
	assert.Equal(t, "c-1", records[2].Comment.ParentCommentID)
}

func TestTransform_MissingPostID(t *testing.T) {
	tr := New()
	item := testItem()
	item.Post.ID = ""

	_, err := tr.Transform(item)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransform_MissingTimestamp(t *testing.T) {
	tr := New()
	item := testItem()
	item.Post.Timestamp = time.Time{}

	_, err := tr.Transform(item)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransform_SkipsMalformedComment(t *testing.T) {
	tr := New()
	item := testItem()
	item.Comments = append(item.Comments, domain.RawComment{Text: "no id"})

	records, err := tr.Transform(item)

	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestTransform_DefaultsUsername(t *testing.T) {
	tr := New()
	item := testItem()
	item.Comments[0].Username = ""

	records, err := tr.Transform(item)

	require.NoError(t, err)
	assert.Equal(t, "unknown_user", records[1].Comment.Username)
}

func TestTransform_CyclicThreadRejected(t *testing.T) {
	tr := New()
	ts := time.Now().UTC()
	item := &domain.RawItem{
		Post: domain.RawPost{ID: "post-1", Timestamp: ts},
		Comments: []domain.RawComment{
			{ID: "c-1", ParentID: "c-2", Text: "a", Timestamp: ts},
			{ID: "c-2", ParentID: "c-1", Text: "b", Timestamp: ts},
		},
	}

	_, err := tr.Transform(item)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransform_ParentOutsideBatchAllowed(t *testing.T) {
	tr := New()
	ts := time.Now().UTC()
	item := &domain.RawItem{
		Post: domain.RawPost{ID: "post-1", Timestamp: ts},
		Comments: []domain.RawComment{
			{ID: "c-1", ParentID: "c-absent", Text: "reply to older comment", Timestamp: ts},
		},
	}

	records, err := tr.Transform(item)

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTransform_Idempotent(t *testing.T) {
	tr := New()

	first, err := tr.Transform(testItem())
	require.NoError(t, err)
	second, err := tr.Transform(testItem())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSplitChunks_SingleChunkKeepsBareKey(t *testing.T) {
	chunks := splitChunks("rec-1", "short text", 100, 20)

	require.Len(t, chunks, 1)
	assert.Equal(t, "rec-1", chunks[0].Key)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitChunks_LongTextSplitsWithIndexedKeys(t *testing.T) {
	text := strings.Repeat("abcde ", 100) // 600 runes
	chunks := splitChunks("rec-1", text, 250, 50)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "rec-1#0", chunks[0].Key)
	assert.Equal(t, "rec-1#1", chunks[1].Key)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Text)
	}
}

func TestSplitChunks_EmptyTextNoChunks(t *testing.T) {
	assert.Nil(t, splitChunks("rec-1", "", 100, 20))
}

func TestSplitChunks_OverlapCoversBoundaries(t *testing.T) {
	text := strings.Repeat("x", 300)
	chunks := splitChunks("rec-1", text, 200, 50)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Text, 200)
	// Second chunk starts 150 in, so it overlaps the first by 50.
	assert.Len(t, chunks[1].Text, 150)
}
