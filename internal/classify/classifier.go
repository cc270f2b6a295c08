package classify

import (
	"context"
	"time"

	"shelver/internal/rules"
)

// Classifier is the primary rule matcher.
type Classifier interface {
	// Classify returns the 0-based index of the matching rule. ok is false
	// for an explicit no-match.
	Classify(ctx context.Context, text string, ordered []rules.Rule) (index int, ok bool, err error)
	// Ready reports whether Classify is currently expected to succeed.
	Ready() bool
	// AwaitReady blocks until ready, the timeout elapses, or ctx ends.
	AwaitReady(ctx context.Context, timeout time.Duration) bool
}

// Mode names which path produced a decision.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
	ModeNone     Mode = "none"
)

// Result is the outcome of one classification.
type Result struct {
	Matched bool
	Index   int
	Rule    rules.Rule
	Mode    Mode
	// Deferred is set when the file was recorded for replay.
	Deferred bool
}
