// Package logging assembles structured slog loggers and formatting helpers used
// across shelver.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code tags log lines with the
// file being processed, the stage, and the trigger that started the work.
// NewNop gives tests and optional wiring a logger that cannot fail.
package logging
