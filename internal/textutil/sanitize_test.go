package textutil

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Is Remote Work Better?", "is-remote-work-better"},
		{"  Café au lait: a history  ", "cafe-au-lait-a-history"},
		{"AI / Ethics -- 2024", "ai-ethics-2024"},
		{"???", "untitled"},
		{"", "untitled"},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 40))
	if len(got) > maxSlugLength {
		t.Fatalf("expected slug capped at %d, got %d (%q)", maxSlugLength, len(got), got)
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("expected no trailing dash, got %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a/b:c?"d" `); got != "a-b-cd" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("  devil's advocate "); got != "Devil's Advocate" {
		t.Fatalf("unexpected title case %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("one  two\nthree", 7); got != "one two..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
