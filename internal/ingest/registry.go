package ingest

import (
	"sync"
	"time"
)

// Registry records the modification time last handled for each path.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]time.Time)}
}

// Seen reports whether path was handled at exactly modTime.
func (r *Registry) Seen(path string, modTime time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.entries[path]
	return ok && last.Equal(modTime)
}

// Claim records (path, modTime) and returns true, unless that exact pair is
// already recorded. A new modTime overwrites the previous entry.
func (r *Registry) Claim(path string, modTime time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.entries[path]; ok && last.Equal(modTime) {
		return false
	}
	r.entries[path] = modTime
	return true
}

// Forget drops any entry for path so the next scan treats it as new.
func (r *Registry) Forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, path)
}

// Len returns the number of tracked paths.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
