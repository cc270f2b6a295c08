package workflow

import (
	"log/slog"
	"time"

	"shelver/internal/activity"
	"shelver/internal/classify"
	"shelver/internal/config"
	"shelver/internal/extract"
	"shelver/internal/ingest"
	"shelver/internal/relocate"
	"shelver/internal/retry"
	"shelver/internal/rules"
	"shelver/internal/services/llm"
	"shelver/internal/watcher"
)

const defaultParallelism = 4

// newPrimaryClassifier returns the LLM classifier, or nil when no API key is
// configured so the pipeline runs on keyword matching alone.
func newPrimaryClassifier(cfg *config.Config, logger *slog.Logger) classify.Classifier {
	client := NewLLMClient(cfg)
	if !client.Configured() {
		return nil
	}
	return classify.NewLLMClassifier(client, cfg.ReadinessPollInterval(), logger)
}

// NewLLMClient builds the chat client from the [llm] section.
func NewLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}

func (m *Manager) buildComponents(store activity.Store, logger *slog.Logger, options *managerOptions) {
	cfg := m.cfg
	m.watcher = watcher.New(cfg.Paths.WatchDir, cfg.DebounceInterval(), logger)
	m.retry = retry.New(retry.Options{
		BaseDelay:    cfg.RetryBaseDelay(),
		MaxDelay:     cfg.RetryMaxDelay(),
		MaxAttempts:  cfg.Retry.MaxAttempts,
		TickInterval: cfg.RetryTickInterval(),
		Now:          m.now,
		OnExhausted:  m.onRetryExhausted,
	}, m.attemptPending, logger)
	m.scanner = ingest.NewScanner(ingest.Options{
		Dir:       cfg.Paths.WatchDir,
		MinAge:    cfg.MinFileAge(),
		Ignore:    cfg.Ingest.IgnoreExtensions,
		Whitelist: cfg.Ingest.WhitelistExtensions,
		Probe:     options.probe,
		Now:       m.now,
	}, m.registry, m.retry, scanReporter{m}, logger)
	m.rules = rules.NewStore(cfg.Paths.RulesFile, logger)
	m.extractor = extract.New(extract.Options{
		MaxChars:  cfg.Extraction.MaxChars,
		PDFToText: cfg.Extraction.PDFToTextBinary,
		Tesseract: cfg.Extraction.TesseractBinary,
		Timeout:   time.Minute,
	}, options.executor, logger)
	m.orchestrator = classify.NewOrchestrator(m.primary, classify.Options{
		WaitForReady:  cfg.Classifier.WaitForReady,
		ReadyTimeout:  cfg.ReadyTimeout(),
		FallbackRetry: cfg.Classifier.FallbackRetry,
		StopWords:     cfg.Classifier.StopWords,
		Now:           m.now,
	}, logger)
	m.relocator = relocate.New(relocate.Options{
		WatchRoot:     cfg.Paths.WatchDir,
		ReviewDir:     cfg.Paths.ReviewDir,
		QuarantineDir: cfg.Paths.QuarantineDir,
		Accessor:      &relocate.DirAccessor{},
		Now:           m.now,
	}, logger)
	m.recorder = activity.NewRecorder(store, claimingRestorer{relocator: m.relocator, registry: m.registry}, logger)
}
