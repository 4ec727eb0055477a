package markdown_test

import (
	"quotecard/internal/markdown"
	"testing"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "less is more", want: "less is more"},
		{name: "punctuation", input: "Done. (really!)", want: `Done\. \(really\!\)`},
		{name: "backslash", input: `a\b`, want: `a\\b`},
		{name: "multibyte", input: "金句。Less-is-more", want: `金句。Less\-is\-more`},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdown.EscapeV2(tt.input); got != tt.want {
				t.Fatalf("EscapeV2(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	got := markdown.Quote("first line.\nsecond")
	want := ">first line\\.\n>second"

	if got != want {
		t.Fatalf("Quote() = %q, want %q", got, want)
	}
}
