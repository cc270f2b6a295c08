package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"shelver/internal/config"
	"shelver/internal/fileutil"
	"shelver/internal/logging"
	"shelver/internal/services"
)

// ErrRuleNotFound is returned when an id or id prefix matches no rule.
var ErrRuleNotFound = errors.New("rule not found")

// Store persists rules in a single file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore returns a store backed by path. The file is created on first save.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "rules"),
	}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load returns every rule in evaluation order. A missing file yields an
// empty list.
func (s *Store) Load() ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// LoadEnabled returns the enabled rules in evaluation order.
func (s *Store) LoadEnabled() ([]Rule, error) {
	all, err := s.Load()
	if err != nil {
		return nil, err
	}
	return Enabled(all), nil
}

// Save replaces the rule file with rules.
func (s *Store) Save(rules []Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(rules)
}

// Add appends a rule. A nil priority places it after every existing rule.
func (s *Store) Add(prompt, destination string, priority *int) (Rule, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Rule{}, services.Wrap(services.ErrValidation, "rules", "add", "prompt is required", nil)
	}
	dest, err := config.ExpandPath(strings.TrimSpace(destination))
	if err != nil {
		return Rule{}, services.Wrap(services.ErrValidation, "rules", "add", "expand destination", err)
	}
	if dest == "" || !filepath.IsAbs(dest) {
		return Rule{}, services.Wrap(services.ErrValidation, "rules", "add",
			fmt.Sprintf("destination %q must be an absolute path", destination), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.load()
	if err != nil {
		return Rule{}, err
	}
	rule := Rule{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Destination: filepath.Clean(dest),
		Enabled:     true,
		Priority:    NextPriority(existing),
	}
	if priority != nil {
		rule.Priority = *priority
	}
	if err := s.save(append(existing, rule)); err != nil {
		return Rule{}, err
	}
	s.logger.Info("rule added",
		logging.String("rule_id", rule.ID),
		logging.String("destination", rule.Destination),
		logging.Int("priority", rule.Priority),
	)
	return rule, nil
}

// Remove deletes the rule matching ref (an id or unique id prefix).
func (s *Store) Remove(ref string) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.load()
	if err != nil {
		return Rule{}, err
	}
	idx, err := find(existing, ref)
	if err != nil {
		return Rule{}, err
	}
	removed := existing[idx]
	remaining := append(existing[:idx:idx], existing[idx+1:]...)
	if err := s.save(remaining); err != nil {
		return Rule{}, err
	}
	s.logger.Info("rule removed", logging.String("rule_id", removed.ID))
	return removed, nil
}

// SetEnabled toggles the rule matching ref.
func (s *Store) SetEnabled(ref string, enabled bool) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.load()
	if err != nil {
		return Rule{}, err
	}
	idx, err := find(existing, ref)
	if err != nil {
		return Rule{}, err
	}
	existing[idx].Enabled = enabled
	if err := s.save(existing); err != nil {
		return Rule{}, err
	}
	return existing[idx], nil
}

func find(rules []Rule, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, fmt.Errorf("%w: empty id", ErrRuleNotFound)
	}
	match := -1
	for i, rule := range rules {
		if rule.ID == ref {
			return i, nil
		}
		if strings.HasPrefix(rule.ID, ref) {
			if match >= 0 {
				return -1, fmt.Errorf("rule id prefix %q is ambiguous", ref)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrRuleNotFound, ref)
	}
	return match, nil
}

func (s *Store) isYAML() bool {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (s *Store) load() ([]Rule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Rule{}, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "rules", "read", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Rule{}, nil
	}

	var rules []Rule
	if s.isYAML() {
		err = yaml.Unmarshal(data, &rules)
	} else {
		err = json.Unmarshal(data, &rules)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "rules", "parse", s.path, err)
	}

	// Hand-written files may omit ids.
	for i := range rules {
		if strings.TrimSpace(rules[i].ID) == "" {
			rules[i].ID = uuid.NewString()
		}
	}
	Sort(rules)
	return rules, nil
}

func (s *Store) save(rules []Rule) error {
	ordered := append([]Rule(nil), rules...)
	Sort(ordered)

	var (
		data []byte
		err  error
	)
	if s.isYAML() {
		data, err = yaml.Marshal(ordered)
	} else {
		data, err = json.MarshalIndent(ordered, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "rules", "write", s.path, err)
	}
	return nil
}
