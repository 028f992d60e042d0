package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

func newTestStore(t *testing.T, cfg Config, handler http.HandlerFunc) *VectorStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.APIKey = "test-key"
	cfg.IndexHost = server.URL
	store, err := NewVectorStore(cfg)
	require.NoError(t, err)
	return store
}

func TestNewVectorStore_Validation(t *testing.T) {
	_, err := NewVectorStore(Config{IndexHost: "https://example.com"})
	assert.Error(t, err)

	_, err = NewVectorStore(Config{APIKey: "k"})
	assert.Error(t, err)
}

func TestUpsert_SendsVectorsAndNamespace(t *testing.T) {
	var got upsertRequest
	store := newTestStore(t, Config{Namespace: "prod"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"upsertedCount":2}`))
	})

	err := store.Upsert(context.Background(), []domain.EmbeddingRecord{
		{ID: "p1", Vector: []float32{0.1}, Metadata: map[string]any{"type": "post"}},
		{ID: "c1#0", Vector: []float32{0.2}},
	})

	require.NoError(t, err)
	assert.Equal(t, "prod", got.Namespace)
	require.Len(t, got.Vectors, 2)
	assert.Equal(t, "p1", got.Vectors[0].ID)
	assert.Equal(t, "post", got.Vectors[0].Metadata["type"])
	assert.Equal(t, "c1#0", got.Vectors[1].ID)
}

func TestUpsert_SplitsLargeBatches(t *testing.T) {
	var batches [][]vector
	store := newTestStore(t, Config{BatchSize: 2}, func(w http.ResponseWriter, r *http.Request) {
		var req upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, req.Vectors)
		w.Write([]byte(`{}`))
	})

	records := make([]domain.EmbeddingRecord, 5)
	for i := range records {
		records[i] = domain.EmbeddingRecord{ID: string(rune('a' + i)), Vector: []float32{1}}
	}

	require.NoError(t, store.Upsert(context.Background(), records))

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}

func TestUpsert_ErrorStatus(t *testing.T) {
	store := newTestStore(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"index scaling"}`))
	})

	err := store.Upsert(context.Background(), []domain.EmbeddingRecord{{ID: "p1", Vector: []float32{1}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestPing(t *testing.T) {
	store := newTestStore(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/describe_index_stats", r.URL.Path)
		w.Write([]byte(`{"dimension":1536}`))
	})
	assert.NoError(t, store.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	store := newTestStore(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.Error(t, store.Ping(context.Background()))
}
