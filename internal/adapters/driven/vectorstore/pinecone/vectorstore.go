// Package pinecone provides a vector store adapter for the Pinecone
// index HTTP API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 100
)

// Config holds configuration for the Pinecone vector store.
type Config struct {
	// APIKey is the Pinecone API key (required).
	APIKey string

	// IndexHost is the index endpoint, e.g.
	// https://my-index-abc123.svc.us-east-1-aws.pinecone.io (required).
	IndexHost string

	// Namespace partitions the index. Optional.
	Namespace string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// BatchSize caps vectors per upsert request (default: 100).
	BatchSize int
}

// VectorStore upserts embeddings into a Pinecone index.
type VectorStore struct {
	client    *http.Client
	host      string
	apiKey    string
	namespace string
	batchSize int
}

// vector is the Pinecone wire shape of one record.
type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// upsertRequest is the /vectors/upsert payload.
type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

// NewVectorStore creates a new Pinecone vector store.
func NewVectorStore(cfg Config) (*VectorStore, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key is required")
	}
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone: index host is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &VectorStore{
		client:    &http.Client{Timeout: cfg.Timeout},
		host:      strings.TrimRight(cfg.IndexHost, "/"),
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		batchSize: cfg.BatchSize,
	}, nil
}

// Upsert writes embedding records keyed by chunk key, batching large
// inputs to stay under the API request limits.
func (s *VectorStore) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		vectors := make([]vector, 0, end-start)
		for _, r := range records[start:end] {
			vectors = append(vectors, vector{
				ID:       r.ID,
				Values:   r.Vector,
				Metadata: r.Metadata,
			})
		}

		if err := s.upsertBatch(ctx, vectors); err != nil {
			return err
		}
	}
	return nil
}

func (s *VectorStore) upsertBatch(ctx context.Context, vectors []vector) error {
	jsonBody, err := json.Marshal(upsertRequest{
		Vectors:   vectors,
		Namespace: s.namespace,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.host+"/vectors/upsert", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pinecone error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// Ping validates the index is reachable via its stats endpoint.
func (s *VectorStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.host+"/describe_index_stats", strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("pinecone: failed to create ping request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinecone: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}
