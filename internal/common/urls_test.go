package common

import "testing"

func TestResolveURL(t *testing.T) {
	root := "https://www.amazon.de/"

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"absolute passes through", "https://www.amazon.de/ap/signin", "https://www.amazon.de/ap/signin"},
		{"protocol relative", "//www.amazon.de/ap/signin", "https://www.amazon.de/ap/signin"},
		{"rooted path", "/ap/signin?x=1", "https://www.amazon.de/ap/signin?x=1"},
		{"bare relative", "ap/signin", "https://www.amazon.de/ap/signin"},
		{"empty", "", ""},
		{"whitespace trimmed", "  /ap/signin ", "https://www.amazon.de/ap/signin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveURL(root, tt.ref)
			if got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestSameHost(t *testing.T) {
	if !SameHost("https://www.amazon.de/a", "https://www.amazon.de/b?x=1") {
		t.Error("expected same host")
	}
	if SameHost("https://www.amazon.de/", "https://www.amazon.com/") {
		t.Error("expected different hosts")
	}
}
