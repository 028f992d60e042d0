package driven

import (
	"context"
	"time"
)

// WatermarkStore persists the single "last successful sync" timestamp
// that bounds incremental fetches. The write is a single atomic upsert
// under a fixed key; a crash before Write leaves the prior watermark
// intact, which is safe because downstream upserts are idempotent.
type WatermarkStore interface {
	// Read returns the last committed watermark, or the epoch default
	// when unset.
	Read(ctx context.Context) (time.Time, error)

	// Write replaces the stored watermark.
	Write(ctx context.Context, t time.Time) error
}
