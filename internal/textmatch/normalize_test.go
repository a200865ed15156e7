package textmatch

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"lowercases", "Der GRADIENT", "der gradient"},
		{"trims", "  hello world  ", "hello world"},
		{"umlauts expand", "Änderungsrate größer über Straße", "aenderungsrate groesser ueber strasse"},
		{"sharp s", "heißt", "heisst"},
		{"keeps math punctuation", "f(x) = 2*x + 1 < 3/y > -4", "f(x) = 2*x + 1 < 3/y > -4"},
		{"strips other punctuation", "a, b; c! d? e: \"f\"", "a b c d e f"},
		{"collapses whitespace", "a   b\t\tc\n\nd", "a b c d"},
		{"keeps digits and underscore", "var_1 has 42 items", "var_1 has 42 items"},
		{"keeps non-latin letters", "déjà vu", "déjà vu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Normalization must be idempotent: running it on its own output is a no-op.
func TestNormalizeIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalize(normalize(x)) == normalize(x)", prop.ForAll(
		func(s string) bool {
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"der gradient zeigt", 3},
		{"f(x) = 2*x", 3},
	}
	for _, tt := range tests {
		if got := WordCount(tt.in); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
