package classify

import (
	"sort"
	"sync"
	"time"
)

// FallbackRecord marks a file classified by the keyword fallback.
type FallbackRecord struct {
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

// FallbackTracker holds the fallback records awaiting replay.
type FallbackTracker struct {
	mu      sync.Mutex
	records map[string]FallbackRecord
}

// NewFallbackTracker returns an empty tracker.
func NewFallbackTracker() *FallbackTracker {
	return &FallbackTracker{records: make(map[string]FallbackRecord)}
}

// Track records path. A later record for the same path replaces the earlier.
func (t *FallbackTracker) Track(path string, at time.Time) {
	t.mu.Lock()
	t.records[path] = FallbackRecord{Path: path, At: at}
	t.mu.Unlock()
}

// Forget drops the record for path if present.
func (t *FallbackTracker) Forget(path string) {
	t.mu.Lock()
	delete(t.records, path)
	t.mu.Unlock()
}

// Drain removes and returns every record, oldest first. Each record is
// returned by exactly one Drain call.
func (t *FallbackTracker) Drain() []FallbackRecord {
	t.mu.Lock()
	out := make([]FallbackRecord, 0, len(t.records))
	for _, record := range t.records {
		out = append(out, record)
	}
	t.records = make(map[string]FallbackRecord)
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Path < out[j].Path
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Len returns the number of pending records.
func (t *FallbackTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
