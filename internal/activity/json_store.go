package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"shelver/internal/fileutil"
	"shelver/internal/logging"
)

// JSONStore keeps the log as a JSON array in one file.
type JSONStore struct {
	path       string
	maxEntries int
	logger     *slog.Logger
	mu         sync.Mutex
}

// NewJSONStore returns a store backed by path.
func NewJSONStore(path string, maxEntries int, logger *slog.Logger) *JSONStore {
	return &JSONStore{
		path:       path,
		maxEntries: maxEntries,
		logger:     logging.NewComponentLogger(logger, "activity"),
	}
}

// Load implements Store.
func (s *JSONStore) Load(context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append implements Store.
func (s *JSONStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		// A corrupt log must not block recording new outcomes.
		logging.WarnWithContext(s.logger, "activity log unreadable; starting a new one", "activity_load_failed",
			logging.Error(err),
			logging.String("path", s.path),
			logging.String(logging.FieldErrorHint, "inspect the backup at "+s.path+".corrupt"),
			logging.String(logging.FieldImpact, "earlier entries are no longer listed or undoable"),
		)
		_ = os.Rename(s.path, s.path+".corrupt")
		entries = nil
	}
	entries = trim(append(entries, entry), s.maxEntries)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist activity: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read activity file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse activity file: %w", err)
	}
	return entries, nil
}
