package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore is an in-memory implementation of driven.WatermarkStore.
type WatermarkStore struct {
	mu    sync.RWMutex
	value time.Time
	set   bool

	// ReadErr and WriteErr inject failures, for tests.
	ReadErr  error
	WriteErr error
}

// NewWatermarkStore creates a new in-memory watermark store.
func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{}
}

// Read returns the stored watermark or the epoch default.
func (s *WatermarkStore) Read(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ReadErr != nil {
		return time.Time{}, s.ReadErr
	}
	if !s.set {
		return domain.EpochWatermark(), nil
	}
	return s.value, nil
}

// Write replaces the stored watermark.
func (s *WatermarkStore) Write(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.value = t.UTC()
	s.set = true
	return nil
}
