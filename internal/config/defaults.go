package config

const (
	defaultConfigPath            = "~/.config/shelver/config.toml"
	defaultWatchDir              = "~/Downloads"
	defaultReviewDir             = "~/Documents/Shelver Review"
	defaultQuarantineDir         = "~/.local/share/shelver/quarantine"
	defaultLogDir                = "~/.local/share/shelver/logs"
	defaultStateDir              = "~/.local/share/shelver"
	defaultRulesFile             = "~/.config/shelver/rules.json"
	defaultDebounceMillis        = 500
	defaultMinFileAgeSeconds     = 2
	defaultRescanIntervalSeconds = 30
	defaultRetryBaseDelay        = 5
	defaultRetryMaxDelay         = 60
	defaultRetryMaxAttempts      = 5
	defaultRetryTickInterval     = 2
	defaultReadyTimeoutSeconds   = 120
	defaultReadinessPollSeconds  = 15
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/shelver/shelver"
	defaultLLMTitle              = "Shelver"
	defaultLLMTimeoutSeconds     = 60
	defaultExtractionMaxChars    = 4000
	defaultPDFToTextBinary       = "pdftotext"
	defaultTesseractBinary       = "tesseract"
	defaultActivityBackend       = "json"
	defaultActivityMaxEntries    = 1000
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

var (
	defaultIgnoreExtensions    = []string{".tmp", ".part", ".partial", ".crdownload", ".download", ".opdownload", ".swp"}
	defaultWhitelistExtensions = []string{".dmg", ".pkg", ".iso"}
	defaultStopWords           = []string{
		"a", "an", "and", "any", "are", "as", "at", "be", "by", "file", "files", "for",
		"from", "in", "into", "is", "it", "its", "of", "on", "or", "that", "the",
		"these", "this", "to", "with", "all", "put", "move", "go", "should",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:      defaultWatchDir,
			ReviewDir:     defaultReviewDir,
			QuarantineDir: defaultQuarantineDir,
			LogDir:        defaultLogDir,
			StateDir:      defaultStateDir,
			RulesFile:     defaultRulesFile,
		},
		Ingest: Ingest{
			DebounceMillis:        defaultDebounceMillis,
			MinFileAgeSeconds:     defaultMinFileAgeSeconds,
			RescanIntervalSeconds: defaultRescanIntervalSeconds,
			IgnoreExtensions:      append([]string(nil), defaultIgnoreExtensions...),
			WhitelistExtensions:   append([]string(nil), defaultWhitelistExtensions...),
		},
		Retry: Retry{
			BaseDelaySeconds:    defaultRetryBaseDelay,
			MaxDelaySeconds:     defaultRetryMaxDelay,
			MaxAttempts:         defaultRetryMaxAttempts,
			TickIntervalSeconds: defaultRetryTickInterval,
		},
		Classifier: Classifier{
			WaitForReady:         true,
			ReadyTimeoutSeconds:  defaultReadyTimeoutSeconds,
			FallbackRetry:        true,
			ReadinessPollSeconds: defaultReadinessPollSeconds,
			StopWords:            append([]string(nil), defaultStopWords...),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Extraction: Extraction{
			MaxChars:        defaultExtractionMaxChars,
			PDFToTextBinary: defaultPDFToTextBinary,
			TesseractBinary: defaultTesseractBinary,
		},
		Activity: Activity{
			Backend:    defaultActivityBackend,
			MaxEntries: defaultActivityMaxEntries,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Moves:          true,
			Review:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
