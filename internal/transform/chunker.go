package transform

import (
	"github.com/meridian-labs/gramsync/internal/core/domain"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// splitChunks splits cleaned text into fixed-size overlapping chunks,
// each independently embeddable. Chunk keys embed the record ID and, when
// the text is split, the chunk index, so vector-store keys stay unique.
// Empty text produces no chunks.
func splitChunks(recordID, text string, size, overlap int) []domain.TextChunk {
	if text == "" {
		return nil
	}
	if overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	total := len(runes)

	var parts []string
	start := 0
	for start < total {
		end := start + size
		if end > total {
			end = total
		}
		parts = append(parts, string(runes[start:end]))
		if end == total {
			break
		}
		start += size - overlap
	}

	chunks := make([]domain.TextChunk, len(parts))
	for i, p := range parts {
		chunks[i] = domain.TextChunk{
			Key:   domain.ChunkKey(recordID, i, len(parts)),
			Index: i,
			Text:  p,
		}
	}
	return chunks
}
