//go:build !integration

package spampredict

import "testing"

func TestParseScore(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  float64
		ok    bool
	}{
		{"bare number", "0.85", 0.85, true},
		{"zero", "0", 0, true},
		{"one", "1.0", 1, true},
		{"trailing period", "0.3.", 0.3, true},
		{"surrounding prose", "The spam probability is 0.72 overall.", 0.72, true},
		{"out of range ignored", "score: 42", 0, false},
		{"no number", "this looks like spam", 0, false},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseScore(tc.reply)
			if ok != tc.ok || got != tc.want {
				t.Errorf("parseScore(%q) = %v, %v; want %v, %v",
					tc.reply, got, ok, tc.want, tc.ok)
			}
		})
	}
}
