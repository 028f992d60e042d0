package driven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// ContentFetcher produces the finite lazy sequence of items modified or
// created after the watermark, with nested comments resolved.
type ContentFetcher interface {
	// FetchSince streams items newer than since. Pagination proceeds
	// newest-first and stops once a whole page falls before
	// since-lookback; the lookback recovers fresh comments on older
	// posts. Non-fatal per-item failures are sent on the error channel
	// as *ItemError and exclude the item from the run. Any other error
	// is fatal to the run. Both channels are closed on completion.
	FetchSince(ctx context.Context, since time.Time, lookback time.Duration) (<-chan domain.RawItem, <-chan error)
}

// ItemError is a non-fatal fetch failure scoped to a single item, sent
// on the fetch error channel. The item is excluded from this run's
// processed set so the next run retries it.
type ItemError struct {
	// PostID identifies the affected item.
	PostID string

	// Timestamp is the item's creation time; it bounds watermark
	// advancement.
	Timestamp time.Time

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.PostID, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// AsItemError checks whether err is a non-fatal per-item fetch failure.
func AsItemError(err error) (*ItemError, bool) {
	var ie *ItemError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
