// Package deck defines the deck data model and loads deck definition files.
// A deck is an ordered list of free-text questions plus optional metadata
// (display title, due date), keyed by its location relative to the decks
// root so persisted progress survives across machines.
package deck

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Question field defaults applied by the loader.
const (
	DefaultPassRatio  = 0.7
	DefaultMinWords   = 20
	DefaultMaxRepeats = 999999
)

// globalIDSep joins a deck key and a question id into a global question id.
const globalIDSep = "::"

// TextQuestion is a single free-text question. Immutable once loaded.
type TextQuestion struct {
	ID         string
	Prompt     string
	Rubric     [][]string // groups of interchangeable phrases, normalized-comparable
	PassRatio  float64
	MinWords   int
	MaxRepeats int // parsed for compatibility, not enforced anywhere
	Example    string
}

// Meta is optional deck-level metadata.
type Meta struct {
	Title   string
	DueDate *time.Time // calendar date; nil means no mandatory daily quota
}

// Deck is loaded deck metadata plus its ordered questions.
type Deck struct {
	Key       string // path relative to the decks root, forward-slash normalized
	Path      string
	Meta      Meta
	Questions []TextQuestion
}

// Title returns the display name: the meta title if set, otherwise a
// prettified form of the filename.
func (d *Deck) Title() string {
	if d.Meta.Title != "" {
		return d.Meta.Title
	}
	return PrettyName(filepath.Base(d.Path))
}

// GlobalID qualifies a question id with this deck's key so it is unique
// across all loaded decks.
func (d *Deck) GlobalID(questionID string) string {
	return GlobalID(d.Key, questionID)
}

// GlobalID builds a deck-key-qualified question id.
func GlobalID(deckKey, questionID string) string {
	return deckKey + globalIDSep + questionID
}

// SplitGlobalID splits a global question id back into deck key and question
// id. The question id may itself contain the separator; the deck key cannot,
// since it is path-derived.
func SplitGlobalID(globalID string) (deckKey, questionID string) {
	deckKey, questionID, _ = strings.Cut(globalID, globalIDSep)
	return deckKey, questionID
}

// Key derives the stable deck key for a deck file: its path relative to
// root with forward slashes. Falls back to the base filename when the path
// is not under root.
func Key(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// PrettyName turns a deck filename into a display name: the extension is
// dropped, separators become spaces, whitespace collapses, and words without
// digits are capitalized.
func PrettyName(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)

	words := strings.Fields(stem)
	for i, w := range words {
		if !strings.ContainsFunc(w, unicode.IsDigit) {
			words[i] = capitalize(w)
		}
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	for i := 1; i < len(r); i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
