package driven

import (
	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// RecordTransformer normalises raw items into canonical records with
// cleaned, chunked, embedding-ready text. Transformation is pure and
// byte-for-byte idempotent on identical input.
type RecordTransformer interface {
	// Transform produces one canonical record for the post and one per
	// comment/reply. A domain.ErrInvalidInput failure means the item is
	// skipped and not retried until the source changes.
	Transform(item *domain.RawItem) ([]domain.CanonicalRecord, error)

	// FromPost rebuilds a canonical record from a stored post.
	// Used by reconciliation, which never re-fetches from the source.
	FromPost(post domain.Post) domain.CanonicalRecord

	// FromComment rebuilds a canonical record from a stored comment.
	FromComment(comment domain.Comment) domain.CanonicalRecord
}
