package classify

import (
	"strings"

	"shelver/internal/rules"
	"shelver/internal/textutil"
)

// minKeywordLen drops single-character tokens.
const minKeywordLen = 2

// KeywordMatcher is the degraded classifier used when the primary one is
// unavailable.
type KeywordMatcher struct {
	stopWords map[string]struct{}
}

// NewKeywordMatcher builds a matcher that ignores stopWords.
func NewKeywordMatcher(stopWords []string) *KeywordMatcher {
	set := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		for _, token := range textutil.Tokenize(word, 1) {
			set[token] = struct{}{}
		}
	}
	return &KeywordMatcher{stopWords: set}
}

// Keywords returns the lower-cased tokens of a rule prompt minus stop words.
func (m *KeywordMatcher) Keywords(prompt string) []string {
	tokens := textutil.Tokenize(prompt, minKeywordLen)
	out := tokens[:0]
	for _, token := range tokens {
		if _, stop := m.stopWords[token]; stop {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Match returns the index of the first rule with a keyword contained in the
// lower-cased text. Containment is plain substring search, so "tax" matches
// "taxes" and "taxreturn2024.pdf".
func (m *KeywordMatcher) Match(text string, ordered []rules.Rule) (int, bool) {
	lowered := textutil.Lower(text)
	for i, rule := range ordered {
		for _, keyword := range m.Keywords(rule.Prompt) {
			if strings.Contains(lowered, keyword) {
				return i, true
			}
		}
	}
	return 0, false
}
