package rules

import (
	"sort"
	"strings"
)

// Rule is one classification criterion and the folder it routes to.
type Rule struct {
	ID          string `json:"id" yaml:"id"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	Destination string `json:"destination" yaml:"destination"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Priority    int    `json:"priority" yaml:"priority"`
}

// Label returns a short identifier for logs and tables.
func (r Rule) Label() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Sort orders rules by ascending priority in place, keeping the relative
// order of equal priorities.
func Sort(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}

// Enabled returns the enabled rules in evaluation order.
func Enabled(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Enabled && strings.TrimSpace(rule.Prompt) != "" && strings.TrimSpace(rule.Destination) != "" {
			out = append(out, rule)
		}
	}
	Sort(out)
	return out
}

// NextPriority returns one more than the highest priority present.
func NextPriority(rules []Rule) int {
	if len(rules) == 0 {
		return 0
	}
	highest := rules[0].Priority
	for _, rule := range rules[1:] {
		if rule.Priority > highest {
			highest = rule.Priority
		}
	}
	return highest + 1
}
