// Package instagram implements the content-source adapter for a
// Graph-style social API: cursor pagination, proactive rate limiting and
// exponential backoff on throttling responses.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/meridian-labs/gramsync/internal/backoff"
	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
	"github.com/meridian-labs/gramsync/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.ContentSource = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "https://graph.instagram.com/v17.0"
	DefaultPageSize = 100
	DefaultTimeout  = 30 * time.Second

	// DefaultRequestsPerSecond keeps well under the platform quota.
	DefaultRequestsPerSecond = 1.0
	// DefaultBurst allows short bursts while paging.
	DefaultBurst = 2
)

// postFields and commentFields mirror the field sets the pipeline maps.
const (
	postFields    = "id,caption,media_type,media_url,permalink,timestamp,like_count,comments_count"
	commentFields = "id,text,timestamp,username"
)

// Config holds configuration for the content-source client.
type Config struct {
	// AccessToken is the API bearer token (required).
	AccessToken string

	// BaseURL is the API base URL (default: the Graph endpoint).
	BaseURL string

	// PageSize caps items per page (default 100, the API maximum).
	PageSize int

	// RequestsPerSecond is the proactive throttle rate.
	RequestsPerSecond float64

	// Burst is the token-bucket burst size.
	Burst int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Retry is the backoff policy for throttled or transient failures.
	Retry backoff.Policy

	// Sleep is injected by tests to avoid real delays.
	Sleep backoff.Sleeper
}

// Client talks to the content API with rate limiting and retries.
type Client struct {
	http     *http.Client
	baseURL  string
	pageSize int
	limiter  *rate.Limiter
	retry    backoff.Policy
	sleep    backoff.Sleeper
}

// NewClient creates a content-source client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("instagram: access token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = backoff.DefaultPolicy()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = backoff.Sleep
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		http:     httpClient,
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		retry:    cfg.Retry,
		sleep:    cfg.Sleep,
	}, nil
}

// ListPosts returns one page of posts, newest first.
func (c *Client) ListPosts(ctx context.Context, cursor string) (*driven.PostPage, error) {
	params := url.Values{
		"fields": {postFields},
		"limit":  {strconv.Itoa(c.pageSize)},
	}
	if cursor != "" {
		params.Set("after", cursor)
	}

	var resp mediaResponse
	if err := c.get(ctx, "/me/media", params, &resp); err != nil {
		return nil, err
	}

	page := &driven.PostPage{
		Posts:      make([]domain.RawPost, 0, len(resp.Data)),
		NextCursor: nextCursor(resp.Paging),
	}
	for _, m := range resp.Data {
		ts, err := parseTimestamp(m.Timestamp)
		if err != nil {
			logger.Warn("Dropping post %s: %v", m.ID, err)
			continue
		}
		page.Posts = append(page.Posts, domain.RawPost{
			ID:           m.ID,
			Caption:      m.Caption,
			MediaType:    m.MediaType,
			MediaURL:     m.MediaURL,
			Permalink:    m.Permalink,
			Timestamp:    ts,
			LikeCount:    m.LikeCount,
			CommentCount: m.CommentsCount,
		})
	}
	return page, nil
}

// ListComments returns one page of top-level comments for a post.
func (c *Client) ListComments(ctx context.Context, postID, cursor string) (*driven.CommentPage, error) {
	return c.listComments(ctx, "/"+postID+"/comments", postID, "", cursor)
}

// ListReplies returns one page of threaded replies for a comment.
func (c *Client) ListReplies(ctx context.Context, commentID, cursor string) (*driven.CommentPage, error) {
	return c.listComments(ctx, "/"+commentID+"/replies", "", commentID, cursor)
}

func (c *Client) listComments(ctx context.Context, path, postID, parentID, cursor string) (*driven.CommentPage, error) {
	params := url.Values{
		"fields": {commentFields},
		"limit":  {strconv.Itoa(c.pageSize)},
	}
	if cursor != "" {
		params.Set("after", cursor)
	}

	var resp commentResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	page := &driven.CommentPage{
		Comments:   make([]domain.RawComment, 0, len(resp.Data)),
		NextCursor: nextCursor(resp.Paging),
	}
	for _, cm := range resp.Data {
		ts, err := parseTimestamp(cm.Timestamp)
		if err != nil {
			logger.Warn("Dropping comment %s: %v", cm.ID, err)
			continue
		}
		page.Comments = append(page.Comments, domain.RawComment{
			ID:        cm.ID,
			PostID:    postID,
			ParentID:  parentID,
			Text:      cm.Text,
			Username:  cm.Username,
			Timestamp: ts,
		})
	}
	return page, nil
}

// Validate checks auth with a lightweight call.
func (c *Client) Validate(ctx context.Context) error {
	params := url.Values{"fields": {"id"}}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.get(ctx, "/me", params, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("validate: %w", domain.ErrAuthInvalid)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// get performs a rate-limited GET with backoff on throttling and
// transient transport failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	attempt := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.getOnce(ctx, path, params, out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		attempt++
		delay, ok := c.retry.Delay(attempt)
		if !ok {
			return fmt.Errorf("%s: retry budget exhausted: %w", path, domain.ErrRateLimited)
		}
		logger.Debug("Retrying %s in %s (attempt %d): %v", path, delay, attempt, err)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Client) getOnce(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &transientError{fmt.Errorf("%s: %w", path, domain.ErrRateLimited)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %s: %w", path, apiMessage(body), domain.ErrAuthInvalid)
	case resp.StatusCode >= 500:
		return &transientError{fmt.Errorf("%s: status %d", path, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, apiMessage(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// transientError marks failures worth retrying with backoff.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func apiMessage(body []byte) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return ae.Error.Message
	}
	return "unexpected response"
}

func nextCursor(p paging) string {
	if p.Next == "" {
		return ""
	}
	return p.Cursors.After
}
