package instagram

import (
	"fmt"
	"time"
)

// Wire shapes for the Graph-style content API.

type mediaItem struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	MediaURL      string `json:"media_url"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
}

type commentItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
}

type pageCursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type paging struct {
	Cursors pageCursors `json:"cursors"`
	Next    string      `json:"next"`
}

type mediaResponse struct {
	Data   []mediaItem `json:"data"`
	Paging paging      `json:"paging"`
}

type commentResponse struct {
	Data   []commentItem `json:"data"`
	Paging paging        `json:"paging"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// timestampLayouts covers the formats the API emits. The Graph API uses
// a numeric zone offset without a colon.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
