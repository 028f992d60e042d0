package driven

import (
	"context"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// PostPage is one page of posts plus the cursor for the next page.
// An empty NextCursor signals completion.
type PostPage struct {
	Posts      []domain.RawPost
	NextCursor string
}

// CommentPage is one page of comments or replies.
type CommentPage struct {
	Comments   []domain.RawComment
	NextCursor string
}

// ContentSource is the remote content API collaborator. Implementations
// handle auth and wire formats; pagination cursors are opaque to callers.
type ContentSource interface {
	// ListPosts returns one page of posts, newest first. Pass an empty
	// cursor for the first page.
	ListPosts(ctx context.Context, cursor string) (*PostPage, error)

	// ListComments returns one page of top-level comments for a post.
	ListComments(ctx context.Context, postID, cursor string) (*CommentPage, error)

	// ListReplies returns one page of threaded replies for a comment.
	ListReplies(ctx context.Context, commentID, cursor string) (*CommentPage, error)

	// Validate checks auth and connectivity with a lightweight call.
	Validate(ctx context.Context) error

	// Close releases resources.
	Close() error
}
