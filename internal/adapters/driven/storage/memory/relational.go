// Package memory provides in-memory store implementations used in tests
// and as lightweight stand-ins during development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
)

// Ensure RelationalStore implements the interface.
var _ driven.RelationalStore = (*RelationalStore)(nil)

// RelationalStore is an in-memory implementation of driven.RelationalStore.
type RelationalStore struct {
	mu       sync.RWMutex
	posts    map[string]domain.Post
	comments map[string]domain.Comment
	metadata map[string]string
	pending  map[string]bool

	// FailUpsertIDs makes upserts of the listed IDs fail, for tests.
	FailUpsertIDs map[string]error
}

// NewRelationalStore creates a new in-memory relational store.
func NewRelationalStore() *RelationalStore {
	return &RelationalStore{
		posts:    make(map[string]domain.Post),
		comments: make(map[string]domain.Comment),
		metadata: make(map[string]string),
		pending:  make(map[string]bool),
	}
}

// UpsertPosts inserts or updates posts.
func (s *RelationalStore) UpsertPosts(_ context.Context, posts []domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		if err := s.failFor(p.ID); err != nil {
			return err
		}
		s.posts[p.ID] = p
	}
	return nil
}

// UpsertComments inserts or updates comments, preserving the replied
// flag of existing rows.
func (s *RelationalStore) UpsertComments(_ context.Context, comments []domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range comments {
		if err := s.failFor(c.ID); err != nil {
			return err
		}
		if existing, ok := s.comments[c.ID]; ok {
			c.Replied = existing.Replied
		}
		s.comments[c.ID] = c
	}
	return nil
}

// GetMetadata reads a metadata value.
func (s *RelationalStore) GetMetadata(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.metadata[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

// SetMetadata upserts a metadata value.
func (s *RelationalStore) SetMetadata(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
	return nil
}

// MarkVectorPending flags a record for reconciliation.
func (s *RelationalStore) MarkVectorPending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = true
	return nil
}

// ClearVectorPending removes the reconciliation flag.
func (s *RelationalStore) ClearVectorPending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	return nil
}

// ListVectorPending returns records awaiting reconciliation.
func (s *RelationalStore) ListVectorPending(_ context.Context) ([]domain.Post, []domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var posts []domain.Post
	var comments []domain.Comment
	for id := range s.pending {
		if p, ok := s.posts[id]; ok {
			posts = append(posts, p)
		}
		if c, ok := s.comments[id]; ok {
			comments = append(comments, c)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return posts, comments, nil
}

// Counts returns stored totals.
func (s *RelationalStore) Counts(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts), len(s.comments), nil
}

// Close releases resources.
func (s *RelationalStore) Close() error { return nil }

// GetPost returns a stored post, for test assertions.
func (s *RelationalStore) GetPost(id string) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	return p, ok
}

// GetComment returns a stored comment, for test assertions.
func (s *RelationalStore) GetComment(id string) (domain.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	return c, ok
}

// SetReplied marks a comment as handled, emulating the downstream
// consumer.
func (s *RelationalStore) SetReplied(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.comments[id]; ok {
		c.Replied = true
		s.comments[id] = c
	}
}

// Pending reports whether an ID is vector-pending, for test assertions.
func (s *RelationalStore) Pending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[id]
}

func (s *RelationalStore) failFor(id string) error {
	if s.FailUpsertIDs == nil {
		return nil
	}
	return s.FailUpsertIDs[id]
}
