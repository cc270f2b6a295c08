package classify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"shelver/internal/logging"
	"shelver/internal/metrics"
	"shelver/internal/rules"
)

// Options controls the wait-versus-fallback policy.
type Options struct {
	WaitForReady  bool
	ReadyTimeout  time.Duration
	FallbackRetry bool
	StopWords     []string
	Now           func() time.Time
}

// Orchestrator routes each request to the primary classifier or the keyword
// fallback. It never returns an error; degradation is logged and absorbed.
type Orchestrator struct {
	primary  Classifier
	keywords *KeywordMatcher
	tracker  *FallbackTracker
	sem      *semaphore.Weighted
	opts     Options
	logger   *slog.Logger
}

// NewOrchestrator wires an orchestrator. primary may be nil, in which case
// every request uses the keyword fallback and nothing is tracked for replay.
func NewOrchestrator(primary Classifier, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		primary:  primary,
		keywords: NewKeywordMatcher(opts.StopWords),
		tracker:  NewFallbackTracker(),
		sem:      semaphore.NewWeighted(1),
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "classify"),
	}
}

// Tracker exposes the fallback records awaiting replay.
func (o *Orchestrator) Tracker() *FallbackTracker { return o.tracker }

// Keywords exposes the fallback matcher.
func (o *Orchestrator) Keywords() *KeywordMatcher { return o.keywords }

// PrimaryReady reports whether the primary classifier is ready.
func (o *Orchestrator) PrimaryReady() bool {
	return o.primary != nil && o.primary.Ready()
}

// Classify picks a rule for text. path identifies the file for fallback
// tracking and may be empty for dry runs.
func (o *Orchestrator) Classify(ctx context.Context, path, text string, ordered []rules.Rule) Result {
	logger := logging.WithContext(ctx, o.logger)
	if len(ordered) == 0 {
		metrics.Classifications.WithLabelValues(metrics.ModeNone).Inc()
		logger.Info("no enabled rules", logging.Args(logging.DecisionAttrs("classification", "none", "no enabled rules")...)...)
		return Result{Mode: ModeNone}
	}

	reason := "no primary classifier"
	if o.primary != nil {
		ready := o.primary.Ready()
		if !ready && o.opts.WaitForReady {
			logger.Debug("waiting for classifier", logging.Duration("timeout", o.opts.ReadyTimeout))
			ready = o.primary.AwaitReady(ctx, o.opts.ReadyTimeout)
		}
		if ready {
			result, err := o.classifyPrimary(ctx, text, ordered)
			if err == nil {
				return result
			}
			reason = "primary classifier error"
			logging.WarnWithContext(logger, "primary classification failed; using keyword fallback", "classifier_degraded",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check llm settings and connectivity"),
				logging.String(logging.FieldImpact, "file classified by keyword matching"),
			)
		} else {
			reason = "classifier not ready"
		}
	}

	return o.classifyFallback(ctx, path, text, ordered, reason)
}

func (o *Orchestrator) classifyPrimary(ctx context.Context, text string, ordered []rules.Rule) (Result, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	idx, ok, err := o.primary.Classify(ctx, text, ordered)
	o.sem.Release(1)
	if err != nil {
		return Result{}, err
	}

	logger := logging.WithContext(ctx, o.logger)
	if !ok || idx < 0 || idx >= len(ordered) {
		metrics.Classifications.WithLabelValues(metrics.ModePrimary).Inc()
		logger.Info("classification decision",
			logging.Args(logging.DecisionAttrs("classification", "no_match", "primary classifier matched no rule")...)...)
		return Result{Mode: ModePrimary}, nil
	}
	metrics.Classifications.WithLabelValues(metrics.ModePrimary).Inc()
	logger.Info("classification decision", logging.Args(append(
		logging.DecisionAttrs("classification", "matched", "primary classifier"),
		logging.String("rule_id", ordered[idx].ID),
		logging.Int("rule_position", idx+1),
	)...)...)
	return Result{Matched: true, Index: idx, Rule: ordered[idx], Mode: ModePrimary}, nil
}

func (o *Orchestrator) classifyFallback(ctx context.Context, path, text string, ordered []rules.Rule, reason string) Result {
	result := Result{Mode: ModeFallback}
	if idx, ok := o.keywords.Match(text, ordered); ok {
		result.Matched = true
		result.Index = idx
		result.Rule = ordered[idx]
	}
	if o.primary != nil && o.opts.FallbackRetry && path != "" {
		o.tracker.Track(path, o.opts.Now())
		result.Deferred = true
	}
	metrics.Classifications.WithLabelValues(metrics.ModeFallback).Inc()

	decision := "no_match"
	attrs := []logging.Attr{}
	if result.Matched {
		decision = "matched"
		attrs = append(attrs, logging.String("rule_id", result.Rule.ID), logging.Int("rule_position", result.Index+1))
	}
	attrs = append(logging.DecisionAttrs("classification", decision, "keyword fallback: "+reason), attrs...)
	attrs = append(attrs, logging.Bool("replay_scheduled", result.Deferred))
	logging.WithContext(ctx, o.logger).Info("classification decision", logging.Args(attrs...)...)
	return result
}
