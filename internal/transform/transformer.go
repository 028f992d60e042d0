// Package transform normalises raw API payloads into canonical records:
// text cleaning, engagement-field mapping, reply-thread validation and
// chunking into embedding-ready payloads.
package transform

import (
	"fmt"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
	"github.com/meridian-labs/gramsync/internal/logger"
)

// Ensure Transformer implements the interface.
var _ driven.RecordTransformer = (*Transformer)(nil)

// unknownUser is substituted when the source omits the author handle.
const unknownUser = "unknown_user"

// Transformer converts raw items into canonical records.
// Transformation is pure; running it twice on identical input yields
// byte-for-byte identical records.
type Transformer struct {
	chunkSize int
	overlap   int
}

// Option configures the transformer.
type Option func(*Transformer)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(t *Transformer) {
		if size > 0 {
			t.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(t *Transformer) {
		if overlap >= 0 {
			t.overlap = overlap
		}
	}
}

// New creates a transformer with the given options.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.overlap >= t.chunkSize {
		t.overlap = t.chunkSize / 4
	}
	return t
}

// Transform produces one canonical record for the post and one per
// comment/reply. Items with missing required fields or cyclic reply
// threads fail with domain.ErrInvalidInput and are skipped by the
// orchestrator, not retried.
func (t *Transformer) Transform(item *domain.RawItem) ([]domain.CanonicalRecord, error) {
	if item.Post.ID == "" {
		return nil, fmt.Errorf("post missing id: %w", domain.ErrInvalidInput)
	}
	if item.Post.Timestamp.IsZero() {
		return nil, fmt.Errorf("post %s missing timestamp: %w", item.Post.ID, domain.ErrInvalidInput)
	}
	if err := validateThreads(item.Comments); err != nil {
		return nil, err
	}

	records := make([]domain.CanonicalRecord, 0, 1+len(item.Comments))
	records = append(records, t.FromPost(domain.Post{
		ID:           item.Post.ID,
		Caption:      item.Post.Caption,
		MediaType:    item.Post.MediaType,
		MediaURL:     item.Post.MediaURL,
		Permalink:    item.Post.Permalink,
		Timestamp:    item.Post.Timestamp.UTC(),
		LikeCount:    item.Post.LikeCount,
		CommentCount: item.Post.CommentCount,
	}))

	for _, rc := range item.Comments {
		if rc.ID == "" || rc.Timestamp.IsZero() {
			logger.Warn("Skipping malformed comment on post %s", item.Post.ID)
			continue
		}

		postID := rc.PostID
		if postID == "" {
			postID = item.Post.ID
		}
		username := rc.Username
		if username == "" {
			username = unknownUser
		}

		records = append(records, t.FromComment(domain.Comment{
			ID:              rc.ID,
			PostID:          postID,
			ParentCommentID: rc.ParentID,
			Text:            rc.Text,
			Username:        username,
			Timestamp:       rc.Timestamp.UTC(),
		}))
	}

	return records, nil
}

// FromPost rebuilds the canonical record for a stored post.
func (t *Transformer) FromPost(post domain.Post) domain.CanonicalRecord {
	clean := Clean(post.Caption)
	return domain.CanonicalRecord{
		Kind:      domain.KindPost,
		Post:      &post,
		CleanText: clean,
		Chunks:    splitChunks(post.ID, clean, t.chunkSize, t.overlap),
	}
}

// FromComment rebuilds the canonical record for a stored comment or reply.
func (t *Transformer) FromComment(comment domain.Comment) domain.CanonicalRecord {
	clean := Clean(comment.Text)
	return domain.CanonicalRecord{
		Kind:      comment.Kind(),
		Comment:   &comment,
		CleanText: clean,
		Chunks:    splitChunks(comment.ID, clean, t.chunkSize, t.overlap),
	}
}

// validateThreads rejects cyclic parent chains among an item's comments.
// Parents outside the batch are treated as roots: the source may page
// replies independently of their parents.
func validateThreads(comments []domain.RawComment) error {
	parents := make(map[string]string, len(comments))
	for _, c := range comments {
		if c.ID != "" {
			parents[c.ID] = c.ParentID
		}
	}

	for id := range parents {
		seen := map[string]bool{id: true}
		cur := parents[id]
		for cur != "" {
			if seen[cur] {
				return fmt.Errorf("cyclic reply thread at comment %s: %w", cur, domain.ErrInvalidInput)
			}
			seen[cur] = true
			cur = parents[cur]
		}
	}
	return nil
}
