//go:build !integration

package mongo

import "testing"

func TestPrevMessageID(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int
	}{
		{"int32", int32(41), 41},
		{"int64", int64(42), 42},
		{"float64 after a backup import", float64(43), 43},
		{"missing field", nil, 0},
		{"non numeric", "44", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := prevMessageID(tc.in); got != tc.want {
				t.Errorf("prevMessageID(%v) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
