package utils

import (
	"testing"
)

func TestCensor(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"blocklisted token", "this is bad word", "this is [ censored ] word"},
		{"substring of longer token untouched", "he wore a badge", "he wore a badge"},
		{"multiple occurrences", "bad things and bad people", "[ censored ] things and [ censored ] people"},
		{"no case folding", "Bad is not bad", "Bad is not [ censored ]"},
		{"punctuation attached is not a match", "that was bad.", "that was bad."},
		{"whitespace preserved", "so\tbad\nindeed", "so\t[ censored ]\nindeed"},
		{"empty input", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Censor(tc.in); got != tc.want {
				t.Errorf("Censor(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
