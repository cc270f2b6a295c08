package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeClassifier()
	c.normalizeLLM()
	c.normalizeExtraction()
	c.normalizeActivity()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("SHELVER_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.watch_dir", &c.Paths.WatchDir},
		{"paths.review_dir", &c.Paths.ReviewDir},
		{"paths.quarantine_dir", &c.Paths.QuarantineDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.rules_file", &c.Paths.RulesFile},
		{"paths.activity_file", &c.Paths.ActivityFile},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.IgnoreExtensions = normalizeExtensions(c.Ingest.IgnoreExtensions)
	c.Ingest.WhitelistExtensions = normalizeExtensions(c.Ingest.WhitelistExtensions)
}

func (c *Config) normalizeClassifier() {
	words := make([]string, 0, len(c.Classifier.StopWords))
	for _, word := range c.Classifier.StopWords {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			words = append(words, word)
		}
	}
	c.Classifier.StopWords = words
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, env := range []string{"SHELVER_LLM_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(env); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
}

func (c *Config) normalizeExtraction() {
	c.Extraction.PDFToTextBinary = strings.TrimSpace(c.Extraction.PDFToTextBinary)
	c.Extraction.TesseractBinary = strings.TrimSpace(c.Extraction.TesseractBinary)
}

func (c *Config) normalizeActivity() {
	c.Activity.Backend = strings.ToLower(strings.TrimSpace(c.Activity.Backend))
	if c.Activity.Backend == "" {
		c.Activity.Backend = defaultActivityBackend
	}
	if c.Paths.ActivityFile == "" && c.Paths.StateDir != "" {
		name := "activity.json"
		if c.Activity.Backend == "sqlite" {
			name = "activity.db"
		}
		c.Paths.ActivityFile = filepath.Join(c.Paths.StateDir, name)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeExtensions lower-cases entries, adds the leading dot and drops duplicates.
func normalizeExtensions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
