package driven

import "context"

// EmbeddingService converts cleaned text into fixed-dimension vectors.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// Fails on empty input and on quota exhaustion.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Ping validates the service is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
