package domain

import "time"

// WatermarkKey is the fixed metadata key under which the watermark is
// persisted in the relational store.
const WatermarkKey = "last_fetch_time"

// WatermarkEpsilon is subtracted from the oldest failed item's timestamp
// when a run ends PARTIAL, so the item falls after the watermark and is
// re-fetched next run. Source timestamps have second resolution.
const WatermarkEpsilon = time.Second

// EpochWatermark is the initial watermark: beginning of time, UTC.
// A fresh deployment fetches everything.
func EpochWatermark() time.Time {
	return time.Unix(0, 0).UTC()
}
