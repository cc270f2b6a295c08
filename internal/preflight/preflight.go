package preflight

import (
	"context"
	"os"

	"shelver/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// The LLM check only runs when an API key is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Watch directory", cfg.Paths.WatchDir)}
	for _, dir := range []struct{ name, path string }{
		{"Review directory", cfg.Paths.ReviewDir},
		{"Quarantine directory", cfg.Paths.QuarantineDir},
	} {
		// Created on first use; only check once they exist.
		if _, err := os.Stat(dir.path); err == nil {
			results = append(results, CheckDirectoryAccess(dir.name, dir.path))
		}
	}
	results = append(results, CheckRulesFile(cfg.Paths.RulesFile))

	if cfg.LLM.APIKey != "" {
		results = append(results, CheckLLM(ctx, "Classifier LLM", cfg.LLM))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
