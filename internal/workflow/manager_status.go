package workflow

import (
	"time"

	"shelver/internal/classify"
)

// StatusSummary represents lightweight pipeline diagnostics.
type StatusSummary struct {
	Running         bool      `json:"running"`
	WatchDir        string    `json:"watch_dir"`
	ReviewDir       string    `json:"review_dir"`
	Pending         int       `json:"pending"`
	FallbackRecords int       `json:"fallback_records"`
	Tracked         int       `json:"tracked"`
	Classifier      string    `json:"classifier"`
	ClassifierError string    `json:"classifier_error,omitempty"`
	LastScan        time.Time `json:"last_scan,omitzero"`
	LastFile        string    `json:"last_file,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

// Classifier labels reported when there is no readiness state machine.
const (
	ClassifierKeywordOnly = "keyword_only"
)

// Status returns the latest pipeline information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		LastScan:  m.lastScan,
		LastFile:  m.lastFile,
		WatchDir:  m.cfg.Paths.WatchDir,
		ReviewDir: m.relocator.ReviewDir(),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	summary.Pending = m.retry.Len()
	summary.FallbackRecords = m.orchestrator.Tracker().Len()
	summary.Tracked = m.registry.Len()
	summary.Classifier, summary.ClassifierError = m.classifierState()
	return summary
}

func (m *Manager) classifierState() (string, string) {
	switch c := m.primary.(type) {
	case nil:
		return ClassifierKeywordOnly, ""
	case readinessSource:
		r := c.Readiness()
		if err := r.Err(); err != nil {
			return r.State().String(), err.Error()
		}
		return r.State().String(), ""
	default:
		if c.Ready() {
			return classify.StateReady.String(), ""
		}
		return classify.StateNotReady.String(), ""
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastFile(path string) {
	m.mu.Lock()
	m.lastFile = path
	m.mu.Unlock()
}
