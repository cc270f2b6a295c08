package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"ingest.debounce_ms":                c.Ingest.DebounceMillis,
		"ingest.rescan_interval_seconds":    c.Ingest.RescanIntervalSeconds,
		"retry.base_delay_seconds":          c.Retry.BaseDelaySeconds,
		"retry.max_delay_seconds":           c.Retry.MaxDelaySeconds,
		"retry.max_attempts":                c.Retry.MaxAttempts,
		"retry.tick_interval_seconds":       c.Retry.TickIntervalSeconds,
		"classifier.ready_timeout_seconds":  c.Classifier.ReadyTimeoutSeconds,
		"classifier.readiness_poll_seconds": c.Classifier.ReadinessPollSeconds,
		"llm.timeout_seconds":               c.LLM.TimeoutSeconds,
		"extraction.max_chars":              c.Extraction.MaxChars,
		"activity.max_entries":              c.Activity.MaxEntries,
		"notifications.request_timeout":     c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Ingest.MinFileAgeSeconds < 0 {
		return errors.New("ingest.min_file_age_seconds must not be negative")
	}
	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		return errors.New("retry.max_delay_seconds must be at least retry.base_delay_seconds")
	}
	if err := c.validateExtensions(); err != nil {
		return err
	}
	switch c.Activity.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("activity.backend: unsupported value %q (want json or sqlite)", c.Activity.Backend)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WatchDir == "" {
		return errors.New("paths.watch_dir must be set")
	}
	for key, value := range map[string]string{
		"paths.review_dir":     c.Paths.ReviewDir,
		"paths.quarantine_dir": c.Paths.QuarantineDir,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if filepath.Clean(value) == filepath.Clean(c.Paths.WatchDir) {
			return fmt.Errorf("%s must differ from paths.watch_dir", key)
		}
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.RulesFile == "" {
		return errors.New("paths.rules_file must be set")
	}
	switch strings.ToLower(filepath.Ext(c.Paths.RulesFile)) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("paths.rules_file: unsupported extension %q (want .json, .yaml or .yml)", filepath.Ext(c.Paths.RulesFile))
	}
	return nil
}

func (c *Config) validateExtensions() error {
	ignored := make(map[string]struct{}, len(c.Ingest.IgnoreExtensions))
	for _, ext := range c.Ingest.IgnoreExtensions {
		ignored[ext] = struct{}{}
	}
	for _, ext := range c.Ingest.WhitelistExtensions {
		if _, ok := ignored[ext]; ok {
			return fmt.Errorf("ingest: extension %q is both ignored and whitelisted", ext)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
