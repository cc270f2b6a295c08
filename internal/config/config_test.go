package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shelver/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SHELVER_LLM_API_KEY", "env-key")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, "Downloads"); cfg.Paths.WatchDir != want {
		t.Fatalf("unexpected watch dir: got %q want %q", cfg.Paths.WatchDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "shelver", "activity.json"); cfg.Paths.ActivityFile != want {
		t.Fatalf("unexpected activity file: got %q want %q", cfg.Paths.ActivityFile, want)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.DebounceInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.DebounceInterval())
	}
	if cfg.MinFileAge() != 2*time.Second || cfg.RetryBaseDelay() != 5*time.Second || cfg.RetryMaxDelay() != time.Minute {
		t.Fatalf("unexpected timing defaults: %+v", cfg.Retry)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.RetryTickInterval() != 2*time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if !cfg.Classifier.WaitForReady || cfg.ReadyTimeout() != 120*time.Second {
		t.Fatalf("unexpected classifier defaults: %+v", cfg.Classifier)
	}
	if cfg.Activity.MaxEntries != 1000 {
		t.Fatalf("unexpected activity max: %d", cfg.Activity.MaxEntries)
	}
}

func TestLoadCustomConfigNormalizesExtensions(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")
	content := `
[paths]
watch_dir = "` + filepath.Join(tempDir, "inbox") + `"
review_dir = "` + filepath.Join(tempDir, "review") + `"
quarantine_dir = "` + filepath.Join(tempDir, "quarantine") + `"
state_dir = "` + filepath.Join(tempDir, "state") + `"
rules_file = "` + filepath.Join(tempDir, "rules.yaml") + `"

[ingest]
ignore_extensions = ["TMP", ".part", "tmp"]
whitelist_extensions = ["DMG"]

[activity]
backend = "SQLite"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if diff := cmp.Diff([]string{".tmp", ".part"}, cfg.Ingest.IgnoreExtensions); diff != "" {
		t.Fatalf("ignore extensions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{".dmg"}, cfg.Ingest.WhitelistExtensions); diff != "" {
		t.Fatalf("whitelist extensions mismatch (-want +got):\n%s", diff)
	}
	if cfg.Activity.Backend != "sqlite" {
		t.Fatalf("expected sqlite backend, got %q", cfg.Activity.Backend)
	}
	if want := filepath.Join(tempDir, "state", "activity.db"); cfg.Paths.ActivityFile != want {
		t.Fatalf("unexpected activity file: got %q want %q", cfg.Paths.ActivityFile, want)
	}
	if got := cfg.SocketPath(); got != filepath.Join(tempDir, "state", "shelver.sock") {
		t.Fatalf("unexpected socket path %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[ingest]\ndebounce = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Paths.WatchDir = "/srv/inbox"
		cfg.Paths.ReviewDir = "/srv/review"
		cfg.Paths.QuarantineDir = "/srv/quarantine"
		cfg.Paths.StateDir = "/srv/state"
		cfg.Paths.RulesFile = "/srv/rules.json"
		return cfg
	}
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "missing watch dir", mutate: func(c *config.Config) { c.Paths.WatchDir = "" }, wantErr: "paths.watch_dir must be set"},
		{name: "review equals watch", mutate: func(c *config.Config) { c.Paths.ReviewDir = "/srv/inbox/" }, wantErr: "paths.review_dir must differ"},
		{name: "bad rules extension", mutate: func(c *config.Config) { c.Paths.RulesFile = "/srv/rules.txt" }, wantErr: "paths.rules_file"},
		{name: "zero attempts", mutate: func(c *config.Config) { c.Retry.MaxAttempts = 0 }, wantErr: "retry.max_attempts must be positive"},
		{name: "max below base", mutate: func(c *config.Config) { c.Retry.MaxDelaySeconds = 1 }, wantErr: "retry.max_delay_seconds"},
		{name: "negative age", mutate: func(c *config.Config) { c.Ingest.MinFileAgeSeconds = -1 }, wantErr: "min_file_age_seconds"},
		{name: "overlapping extensions", mutate: func(c *config.Config) { c.Ingest.WhitelistExtensions = []string{".tmp"} }, wantErr: "both ignored and whitelisted"},
		{name: "unknown backend", mutate: func(c *config.Config) { c.Activity.Backend = "redis" }, wantErr: "activity.backend"},
		{name: "unknown format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "config", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Paths.WatchDir != filepath.Join(tempHome, "Downloads") {
		t.Fatalf("unexpected watch dir %q", cfg.Paths.WatchDir)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ReviewDir = filepath.Join(dir, "review")
	cfg.Paths.QuarantineDir = filepath.Join(dir, "quarantine")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, path := range []string{cfg.Paths.ReviewDir, cfg.Paths.QuarantineDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", path, err)
		}
	}
}
