package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shelver/internal/config"
)

// DefaultMaxEntries bounds the retained log.
const DefaultMaxEntries = 1000

// Store persists entries in append order.
type Store interface {
	// Load returns all retained entries, oldest first. A missing store is empty.
	Load(ctx context.Context) ([]Entry, error)
	// Append adds entry and trims the store to its maximum size.
	Append(ctx context.Context, entry Entry) error
	Close() error
}

// Open returns the store selected by cfg.Activity.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	maxEntries := cfg.Activity.MaxEntries
	switch strings.ToLower(strings.TrimSpace(cfg.Activity.Backend)) {
	case "", "json":
		return NewJSONStore(cfg.Paths.ActivityFile, maxEntries, logger), nil
	case "sqlite":
		return OpenSQLite(cfg.Paths.ActivityFile, maxEntries)
	default:
		return nil, fmt.Errorf("unknown activity backend %q", cfg.Activity.Backend)
	}
}

func trim(entries []Entry, maxEntries int) []Entry {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if len(entries) <= maxEntries {
		return entries
	}
	return entries[len(entries)-maxEntries:]
}
