package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shelver/internal/logging"
	"shelver/internal/rules"
	"shelver/internal/services"
	"shelver/internal/services/llm"
)

const systemPrompt = "You sort incoming files into folders using numbered rules. " +
	"Reply with only the number of the first rule that describes the document, or 0 if none do."

// Completer is the subset of the llm client used here.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
	Configured() bool
}

// LLMClassifier asks a chat model which rule matches. Readiness is kept
// current by a monitor goroutine polling HealthCheck.
type LLMClassifier struct {
	client    Completer
	readiness *Readiness
	poll      time.Duration
	logger    *slog.Logger

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLLMClassifier wraps client. An unconfigured client starts Failed.
func NewLLMClassifier(client Completer, poll time.Duration, logger *slog.Logger) *LLMClassifier {
	if poll <= 0 {
		poll = 15 * time.Second
	}
	c := &LLMClassifier{
		client:    client,
		readiness: NewReadiness(),
		poll:      poll,
		logger:    logging.NewComponentLogger(logger, "classifier"),
	}
	if client == nil || !client.Configured() {
		c.readiness.MarkFailed(llm.ErrNotConfigured)
	}
	return c
}

// Readiness exposes the state machine.
func (c *LLMClassifier) Readiness() *Readiness { return c.readiness }

// Ready reports whether the model answered the last health check.
func (c *LLMClassifier) Ready() bool { return c.readiness.Ready() }

// AwaitReady blocks until ready or timeout.
func (c *LLMClassifier) AwaitReady(ctx context.Context, timeout time.Duration) bool {
	return c.readiness.Await(ctx, timeout)
}

// Classify sends the numbered rule list and the document text.
func (c *LLMClassifier) Classify(ctx context.Context, text string, ordered []rules.Rule) (int, bool, error) {
	if c.client == nil || !c.client.Configured() {
		return 0, false, services.Wrap(services.ErrClassifier, "classify", "llm", "not configured", llm.ErrNotConfigured)
	}
	reply, err := c.client.Complete(ctx, systemPrompt, BuildPrompt(text, ordered))
	if err != nil {
		if ctx.Err() == nil {
			c.readiness.MarkNotReady()
		}
		return 0, false, services.Wrap(services.ErrClassifier, "classify", "llm", "completion failed", err)
	}
	idx, ok := ParseRuleIndex(reply, len(ordered))
	c.logger.Debug("classifier reply", logging.String("reply", reply), logging.Bool("matched", ok))
	return idx, ok, nil
}

// BuildPrompt renders the user prompt for a classification request.
func BuildPrompt(text string, ordered []rules.Rule) string {
	var b strings.Builder
	b.WriteString("Rules:\n")
	for i, rule := range ordered {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(rule.Prompt))
	}
	b.WriteString("\nDocument:\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\nAnswer with a single number.")
	return b.String()
}

// CheckNow runs one health check and updates readiness.
func (c *LLMClassifier) CheckNow(ctx context.Context) error {
	if c.client == nil || !c.client.Configured() {
		c.readiness.MarkFailed(llm.ErrNotConfigured)
		return llm.ErrNotConfigured
	}
	wasReady := c.readiness.Ready()
	err := c.client.HealthCheck(ctx)
	switch {
	case err == nil:
		c.readiness.MarkReady()
		if !wasReady {
			c.logger.Info("classifier ready")
		}
	case errors.Is(err, context.Canceled):
	default:
		c.readiness.MarkNotReady()
		if wasReady {
			logging.WarnWithContext(c.logger, "classifier became unavailable", "classifier_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check llm api key, model and network"),
				logging.String(logging.FieldImpact, "files use keyword fallback until the classifier recovers"),
			)
		} else {
			c.logger.Debug("classifier health check failed", logging.Error(err))
		}
	}
	return err
}

// Start launches the readiness monitor. It does nothing when the client is
// not configured.
func (c *LLMClassifier) Start(ctx context.Context) {
	if c.client == nil || !c.client.Configured() {
		return
	}
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}
	monitorCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	go c.monitor(monitorCtx, c.done)
}

// Stop halts the monitor and waits for it to exit.
func (c *LLMClassifier) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.running = false
	c.runMu.Unlock()
	cancel()
	<-done
}

func (c *LLMClassifier) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)
	_ = c.CheckNow(ctx)
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.CheckNow(ctx)
		}
	}
}
