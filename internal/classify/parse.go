package classify

import (
	"strconv"
	"strings"
)

// ParseRuleIndex interprets a primary classifier reply for ruleCount rules.
// The leading integer wins; without one, the first digit anywhere is used.
// 0 or an out-of-range number means no match. The result is 0-based.
func ParseRuleIndex(reply string, ruleCount int) (int, bool) {
	trimmed := strings.TrimSpace(reply)
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}

	var n int
	if end > 0 {
		parsed, err := strconv.Atoi(trimmed[:end])
		if err != nil {
			return 0, false
		}
		n = parsed
	} else {
		idx := strings.IndexAny(trimmed, "0123456789")
		if idx < 0 {
			return 0, false
		}
		n = int(trimmed[idx] - '0')
	}

	if n < 1 || n > ruleCount {
		return 0, false
	}
	return n - 1, true
}
