package assetstorage

import (
	"strings"
	"testing"
)

func TestMergeToken(t *testing.T) {
	cases := []struct {
		name  string
		url   string
		token string
		want  string
	}{
		{"no query", "https://h/c/f.jpg", "tok", "https://h/c/f.jpg?tok"},
		{"existing query", "https://h/c/f.jpg?a=1", "tok", "https://h/c/f.jpg?a=1&tok"},
		{"token with question mark", "https://h/c/f.jpg", "?sv=1&sig=x", "https://h/c/f.jpg?sv=1&sig=x"},
		{"already tokenized", "https://h/c/f.jpg?a=1&tok", "tok", "https://h/c/f.jpg?a=1&tok"},
		{"empty token", "https://h/c/f.jpg", "", "https://h/c/f.jpg"},
		{"bare question mark token", "https://h/c/f.jpg", "?", "https://h/c/f.jpg"},
		{"empty url", "", "tok", ""},
		{"dangling question mark", "https://h/c/f.jpg?", "tok", "https://h/c/f.jpg?tok"},
		{"dangling ampersand", "https://h/c/f.jpg?a=1&", "tok", "https://h/c/f.jpg?a=1&tok"},
		{"fragment", "https://h/c/f.pdf#page=2", "tok", "https://h/c/f.pdf?tok#page=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MergeToken(tc.url, tc.token); got != tc.want {
				t.Fatalf("MergeToken(%q, %q) = %q, want %q", tc.url, tc.token, got, tc.want)
			}
		})
	}
}

func TestMergeTokenIsIdempotent(t *testing.T) {
	urls := []string{
		"https://h/c/f.jpg",
		"https://h/c/f.jpg?a=1",
		"https://h/c/f.jpg?",
		"https://h/c/f.pdf#x",
		"",
	}
	tokens := []string{"tok", "?sv=2024&se=1&sig=abc%2B", "sig=1", ""}
	for _, u := range urls {
		for _, tok := range tokens {
			once := MergeToken(u, tok)
			twice := MergeToken(once, tok)
			if once != twice {
				t.Fatalf("not idempotent for (%q, %q): %q then %q", u, tok, once, twice)
			}
			if strings.Count(once, "?") > 1 {
				t.Fatalf("merged url %q has more than one '?'", once)
			}
		}
	}
}
