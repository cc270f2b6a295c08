package classify

import "testing"

func TestParseRuleIndex(t *testing.T) {
	tests := []struct {
		reply   string
		count   int
		wantIdx int
		wantOK  bool
	}{
		{"1", 3, 0, true},
		{"  3\n", 3, 2, true},
		{"2. Receipts", 3, 1, true},
		{"Rule 2 matches", 3, 1, true},
		{"12", 12, 11, true},
		{"0", 3, 0, false},
		{"4", 3, 0, false},
		{"none", 3, 0, false},
		{"", 3, 0, false},
		{"The answer is 7", 3, 0, false},
		{"99999999999999999999999", 3, 0, false},
	}
	for _, tc := range tests {
		idx, ok := ParseRuleIndex(tc.reply, tc.count)
		if idx != tc.wantIdx || ok != tc.wantOK {
			t.Errorf("ParseRuleIndex(%q, %d) = (%d, %v), want (%d, %v)", tc.reply, tc.count, idx, ok, tc.wantIdx, tc.wantOK)
		}
	}
}
