package instagram

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
	"github.com/meridian-labs/gramsync/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.ContentFetcher = (*Fetcher)(nil)

// DefaultLookback re-fetches posts up to a week below the watermark so
// fresh comments on older posts are picked up.
const DefaultLookback = 7 * 24 * time.Hour

// Fetcher walks the content source's pagination and resolves nested
// comments and replies per post.
type Fetcher struct {
	source driven.ContentSource
}

// NewFetcher creates a fetcher over a content source.
func NewFetcher(source driven.ContentSource) *Fetcher {
	return &Fetcher{source: source}
}

// FetchSince streams items newer than since. Posts arrive newest-first;
// paging stops once an entire page falls before since-lookback. A failed
// comment sub-fetch is reported as a *driven.ItemError and the item is
// excluded from the run so the next run retries it.
func (f *Fetcher) FetchSince(ctx context.Context, since time.Time, lookback time.Duration) (<-chan domain.RawItem, <-chan error) {
	items := make(chan domain.RawItem)
	errs := make(chan error, 1)

	if lookback <= 0 {
		lookback = DefaultLookback
	}
	boundary := since.Add(-lookback)

	go func() {
		defer close(items)
		defer close(errs)

		cursor := ""
		for {
			page, err := f.source.ListPosts(ctx, cursor)
			if err != nil {
				select {
				case errs <- fmt.Errorf("list posts: %w", err):
				case <-ctx.Done():
				}
				return
			}

			anyInRange := false
			for i := range page.Posts {
				post := page.Posts[i]
				if !post.Timestamp.After(boundary) {
					continue
				}
				anyInRange = true

				comments, err := f.fetchThread(ctx, post.ID)
				if err != nil {
					select {
					case <-ctx.Done():
						// The consumer may be gone and the error buffer
						// full; never block on the way out.
						select {
						case errs <- ctx.Err():
						default:
						}
						return
					case errs <- &driven.ItemError{PostID: post.ID, Timestamp: post.Timestamp, Err: err}:
					}
					continue
				}

				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case items <- domain.RawItem{Post: post, Comments: comments}:
				}
			}

			if page.NextCursor == "" {
				return
			}
			if len(page.Posts) > 0 && !anyInRange {
				// Whole page predates the boundary; newest-first order
				// means everything after it does too.
				logger.Debug("Stopping pagination below watermark boundary %s", boundary.Format(time.RFC3339))
				return
			}
			cursor = page.NextCursor
		}
	}()

	return items, errs
}

// fetchThread retrieves all comments for a post and all replies for each
// comment, following cursors until exhaustion.
func (f *Fetcher) fetchThread(ctx context.Context, postID string) ([]domain.RawComment, error) {
	var all []domain.RawComment

	cursor := ""
	for {
		page, err := f.source.ListComments(ctx, postID, cursor)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}

		for _, c := range page.Comments {
			all = append(all, c)

			replies, err := f.fetchReplies(ctx, postID, c.ID)
			if err != nil {
				return nil, fmt.Errorf("list replies for %s: %w", c.ID, err)
			}
			all = append(all, replies...)
		}

		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (f *Fetcher) fetchReplies(ctx context.Context, postID, commentID string) ([]domain.RawComment, error) {
	var all []domain.RawComment

	cursor := ""
	for {
		page, err := f.source.ListReplies(ctx, commentID, cursor)
		if err != nil {
			return nil, err
		}

		for _, r := range page.Comments {
			// Replies inherit the owning post; the API scopes them to
			// the parent comment only.
			r.PostID = postID
			r.ParentID = commentID
			all = append(all, r)
		}

		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}
