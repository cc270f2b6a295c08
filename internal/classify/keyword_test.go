package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"shelver/internal/rules"
)

func TestKeywordsDropStopWordsAndShortTokens(t *testing.T) {
	m := NewKeywordMatcher([]string{"the", "and", "files"})
	got := m.Keywords("Put the Invoices and tax-forms (2024) files in a folder")
	want := []string{"put", "invoices", "tax", "forms", "2024", "in", "folder"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchFirstRuleWins(t *testing.T) {
	m := NewKeywordMatcher(nil)
	ordered := []rules.Rule{
		{ID: "a", Prompt: "invoice", Destination: "/A"},
		{ID: "b", Prompt: "receipt", Destination: "/B"},
	}
	idx, ok := m.Match("scan.pdf\nreceipt attached to invoice 42", ordered)
	if !ok || idx != 0 {
		t.Fatalf("Match = (%d, %v), want (0, true)", idx, ok)
	}
}

func TestMatchKeywordContainedInText(t *testing.T) {
	m := NewKeywordMatcher([]string{"documents"})
	ordered := []rules.Rule{
		{ID: "inv", Prompt: "invoice", Destination: "/docs/Invoices"},
		{ID: "tax", Prompt: "tax documents", Destination: "/docs/Tax"},
	}
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "plural in text", text: "scan.pdf\ntaxes 2024", want: 1},
		{name: "joined filename", text: "taxreturn2024.pdf", want: 1},
		{name: "camel case filename", text: "InvoiceMarch2024.pdf", want: 0},
		{name: "first rule still wins", text: "InvoiceMarch2024.pdf\ntaxes 2024", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx, ok := m.Match(tc.text, ordered)
			if !ok || idx != tc.want {
				t.Fatalf("Match(%q) = (%d, %v), want (%d, true)", tc.text, idx, ok, tc.want)
			}
		})
	}
}

func TestMatchNoKeywordPresent(t *testing.T) {
	m := NewKeywordMatcher([]string{"the"})
	ordered := []rules.Rule{{Prompt: "the taxes", Destination: "/T"}}
	if _, ok := m.Match("the holiday photos", ordered); ok {
		t.Fatal("stop words must not produce a match")
	}
}
