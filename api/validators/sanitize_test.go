package validators

import (
	"testing"
	"unicode/utf8"
)

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		max    int
		expect string
	}{
		{"trims", "  1Z999AA10123456784 \n", 0, "1Z999AA10123456784"},
		{"drops control", "box\x00 dented\x1b", 0, "box dented"},
		{"keeps newlines", "line one\nline two", 0, "line one\nline two"},
		{"cuts bytes", "abcdef", 4, "abcd"},
		{"rune boundary", "caña", 3, "ca"},
	}
	for _, tc := range cases {
		got := SanitizeString(tc.in, tc.max)
		if got != tc.expect {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expect, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("%s: produced invalid utf-8 %q", tc.name, got)
		}
	}
}
