package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	WatchDir      string `toml:"watch_dir"`
	ReviewDir     string `toml:"review_dir"`
	QuarantineDir string `toml:"quarantine_dir"`
	LogDir        string `toml:"log_dir"`
	StateDir      string `toml:"state_dir"`
	RulesFile     string `toml:"rules_file"`
	ActivityFile  string `toml:"activity_file"`
}

// Ingest controls change detection and the readiness filter.
type Ingest struct {
	DebounceMillis        int      `toml:"debounce_ms"`
	MinFileAgeSeconds     int      `toml:"min_file_age_seconds"`
	RescanIntervalSeconds int      `toml:"rescan_interval_seconds"`
	IgnoreExtensions      []string `toml:"ignore_extensions"`
	WhitelistExtensions   []string `toml:"whitelist_extensions"`
}

// Retry controls the backoff schedule for files that are not yet processable.
type Retry struct {
	BaseDelaySeconds    int `toml:"base_delay_seconds"`
	MaxDelaySeconds     int `toml:"max_delay_seconds"`
	MaxAttempts         int `toml:"max_attempts"`
	TickIntervalSeconds int `toml:"tick_interval_seconds"`
}

// Classifier controls the wait-versus-fallback policy.
type Classifier struct {
	WaitForReady         bool     `toml:"wait_for_ready"`
	ReadyTimeoutSeconds  int      `toml:"ready_timeout_seconds"`
	FallbackRetry        bool     `toml:"fallback_retry"`
	ReadinessPollSeconds int      `toml:"readiness_poll_seconds"`
	StopWords            []string `toml:"stop_words"`
}

// LLM contains connection settings for the primary classifier.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Extraction controls content extraction ahead of classification.
type Extraction struct {
	MaxChars        int    `toml:"max_chars"`
	PDFToTextBinary string `toml:"pdftotext_binary"`
	TesseractBinary string `toml:"tesseract_binary"`
}

// Activity controls the activity log backend.
type Activity struct {
	Backend    string `toml:"backend"`
	MaxEntries int    `toml:"max_entries"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Moves          bool   `toml:"moves"`
	Review         bool   `toml:"review"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// API contains the optional HTTP status endpoint settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Config encapsulates all configuration values for shelver.
//
// Configuration sections by subsystem:
//   - Paths: watched, review, quarantine, state and log locations
//   - Ingest: debounce, readiness filter, periodic rescan
//   - Retry: backoff schedule for deferred files
//   - Classifier: wait-for-ready policy and keyword fallback
//   - LLM: primary classifier connection
//   - Extraction: content extraction limits and tools
//   - Activity: activity log backend and retention
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - API: HTTP status endpoint
type Config struct {
	Paths         Paths         `toml:"paths"`
	Ingest        Ingest        `toml:"ingest"`
	Retry         Retry         `toml:"retry"`
	Classifier    Classifier    `toml:"classifier"`
	LLM           LLM           `toml:"llm"`
	Extraction    Extraction    `toml:"extraction"`
	Activity      Activity      `toml:"activity"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("shelver.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into. The watch
// directory is not created: a missing watch directory is a setup error the
// watcher reports.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ReviewDir, c.Paths.QuarantineDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "shelver.lock")
}

// SocketPath is the daemon IPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "shelver.sock")
}

// PIDPath is the daemon pid file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "shelver.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
