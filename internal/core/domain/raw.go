package domain

import "time"

// RawPost is a post payload as returned by the content source, before
// normalisation.
type RawPost struct {
	ID           string
	Caption      string
	MediaType    string
	MediaURL     string
	Permalink    string
	Timestamp    time.Time
	LikeCount    int
	CommentCount int
}

// RawComment is a comment or reply payload as returned by the content
// source. Replies carry ParentID; top-level comments leave it empty.
type RawComment struct {
	ID        string
	PostID    string
	ParentID  string
	Text      string
	Username  string
	Timestamp time.Time
}

// RawItem is one unit of fetch output: a post paired with all of its
// nested comments and replies (flattened, replies identified by ParentID).
type RawItem struct {
	Post     RawPost
	Comments []RawComment
}

// MaxTimestamp returns the newest timestamp across the post and its
// comments. Used for watermark advancement.
func (it *RawItem) MaxTimestamp() time.Time {
	newest := it.Post.Timestamp
	for _, c := range it.Comments {
		if c.Timestamp.After(newest) {
			newest = c.Timestamp
		}
	}
	return newest
}
