// Package domain holds the core types of the sync pipeline. It has no
// dependencies on adapters or external services.
package domain

import (
	"fmt"
	"time"
)

// RecordKind discriminates the canonical record variants.
type RecordKind string

const (
	// KindPost is a top-level post.
	KindPost RecordKind = "post"

	// KindComment is a top-level comment on a post.
	KindComment RecordKind = "comment"

	// KindReply is a nested reply to a comment.
	KindReply RecordKind = "reply"
)

// Post is the canonical relational shape of a post. Keyed by the
// source's external ID.
type Post struct {
	ID           string
	Caption      string
	MediaType    string
	MediaURL     string
	Permalink    string
	Timestamp    time.Time
	LikeCount    int
	CommentCount int
}

// Comment is the canonical relational shape of a comment or reply.
// Replied is owned by the downstream consumer and must survive upserts.
type Comment struct {
	ID              string
	PostID          string
	ParentCommentID string
	Text            string
	Username        string
	Timestamp       time.Time
	Replied         bool
}

// Kind returns KindReply when the comment nests under another comment.
func (c Comment) Kind() RecordKind {
	if c.ParentCommentID != "" {
		return KindReply
	}
	return KindComment
}

// TextChunk is one embedding-ready slice of a record's cleaned text.
type TextChunk struct {
	// Key is the vector-store key: the record ID, suffixed with the
	// chunk index when the text was split.
	Key string

	// Index is the zero-based chunk position.
	Index int

	// Text is the chunk content.
	Text string
}

// ChunkKey derives the stable vector-store key for a chunk. Unsplit
// text keeps the bare record ID so re-chunking stays idempotent.
func ChunkKey(recordID string, index, total int) string {
	if total <= 1 {
		return recordID
	}
	return fmt.Sprintf("%s#%d", recordID, index)
}

// CanonicalRecord is the normalised unit flowing from transform to the
// write stage. Exactly one of Post or Comment is set, per Kind.
type CanonicalRecord struct {
	Kind      RecordKind
	Post      *Post
	Comment   *Comment
	CleanText string
	Chunks    []TextChunk
}

// ID returns the record's external identifier.
func (r *CanonicalRecord) ID() string {
	if r.Kind == KindPost {
		return r.Post.ID
	}
	return r.Comment.ID
}

// Timestamp returns the record's creation time.
func (r *CanonicalRecord) Timestamp() time.Time {
	if r.Kind == KindPost {
		return r.Post.Timestamp
	}
	return r.Comment.Timestamp
}

// EmbeddingRecord is one vector-store upsert payload.
type EmbeddingRecord struct {
	// ID is the chunk key.
	ID string

	// Vector is the embedding.
	Vector []float32

	// Metadata carries the filterable attributes stored alongside the
	// vector.
	Metadata map[string]any
}
