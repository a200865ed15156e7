package deck

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a deck file does not exist.
var ErrNotFound = errors.New("deck not found")

// ErrFormat is returned for any deck validation failure. Two on-disk shapes
// are accepted: a bare list of question objects (legacy) and an object with
// a meta block and a questions list.
var ErrFormat = errors.New("invalid deck format")

const dueDateLayout = "2006-01-02"

// questionJSON is the on-disk question shape. Pointers distinguish absent
// optional fields from zero values.
type questionJSON struct {
	Type       string          `json:"type"`
	ID         *string         `json:"id"`
	Prompt     *string         `json:"prompt"`
	Rubric     json.RawMessage `json:"rubric"`
	PassRatio  *float64        `json:"pass_ratio"`
	MinWords   *int            `json:"min_words"`
	MaxRepeats *int            `json:"max_repeats"`
	Example    *string         `json:"example"`
}

type metaJSON struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

type deckJSON struct {
	Meta      *metaJSON       `json:"meta"`
	Questions json.RawMessage `json:"questions"`
}

// Load parses and validates a deck file. Only questions of type "text" are
// retained; other types are skipped for forward compatibility. Fails with
// ErrNotFound when the path does not exist and ErrFormat for any shape or
// validation problem, including a deck with no text questions left.
func Load(path string) (Meta, []TextQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Meta{}, nil, fmt.Errorf("reading deck %s: %w", path, err)
	}

	meta, rawQuestions, err := splitShape(data)
	if err != nil {
		return Meta{}, nil, err
	}

	questions := make([]TextQuestion, 0, len(rawQuestions))
	for i, raw := range rawQuestions {
		q, ok, err := parseQuestion(i, raw)
		if err != nil {
			return Meta{}, nil, err
		}
		if ok {
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		return Meta{}, nil, fmt.Errorf("%w: no text questions in deck", ErrFormat)
	}
	return meta, questions, nil
}

// LoadDeck loads a deck file and derives its key relative to root.
func LoadDeck(path, root string) (Deck, error) {
	meta, questions, err := Load(path)
	if err != nil {
		return Deck{}, err
	}
	return Deck{
		Key:       Key(path, root),
		Path:      path,
		Meta:      meta,
		Questions: questions,
	}, nil
}

// splitShape dispatches on the JSON root kind: a list is the legacy bare
// question list, an object must carry a questions list and may carry meta.
func splitShape(data []byte) (Meta, []json.RawMessage, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return Meta{}, nil, fmt.Errorf("%w: empty deck file", ErrFormat)
	}

	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return Meta{}, nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return Meta{}, raw, nil

	case '{':
		var root deckJSON
		if err := json.Unmarshal(data, &root); err != nil {
			return Meta{}, nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if len(root.Questions) == 0 || string(root.Questions) == "null" {
			return Meta{}, nil, fmt.Errorf("%w: deck object has no questions list", ErrFormat)
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(root.Questions, &raw); err != nil {
			return Meta{}, nil, fmt.Errorf("%w: questions is not a list", ErrFormat)
		}
		meta, err := parseMeta(root.Meta)
		if err != nil {
			return Meta{}, nil, err
		}
		return meta, raw, nil

	default:
		return Meta{}, nil, fmt.Errorf("%w: deck root must be a list or an object with a questions list", ErrFormat)
	}
}

func parseMeta(m *metaJSON) (Meta, error) {
	if m == nil {
		return Meta{}, nil
	}
	meta := Meta{Title: strings.TrimSpace(m.Title)}
	if m.DueDate != "" {
		due, err := time.Parse(dueDateLayout, m.DueDate)
		if err != nil {
			return Meta{}, fmt.Errorf("%w: due_date %q is not YYYY-MM-DD", ErrFormat, m.DueDate)
		}
		meta.DueDate = &due
	}
	return meta, nil
}

// parseQuestion validates one question entry. The second return is false
// when the entry is a non-text question to be skipped.
func parseQuestion(index int, raw json.RawMessage) (TextQuestion, bool, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return TextQuestion{}, false, fmt.Errorf("%w: question at index %d is not an object", ErrFormat, index)
	}

	var obj questionJSON
	if err := json.Unmarshal(raw, &obj); err != nil {
		return TextQuestion{}, false, fmt.Errorf("%w: question at index %d: %v", ErrFormat, index, err)
	}
	if obj.Type != "text" {
		return TextQuestion{}, false, nil
	}

	qid := fmt.Sprintf("q%d", index+1)
	if obj.ID != nil && *obj.ID != "" {
		qid = *obj.ID
	}

	if obj.Prompt == nil || strings.TrimSpace(*obj.Prompt) == "" {
		return TextQuestion{}, false, fmt.Errorf("%w: question %q missing prompt", ErrFormat, qid)
	}

	rubric, err := parseRubric(qid, obj.Rubric)
	if err != nil {
		return TextQuestion{}, false, err
	}

	q := TextQuestion{
		ID:         qid,
		Prompt:     strings.TrimSpace(*obj.Prompt),
		Rubric:     rubric,
		PassRatio:  DefaultPassRatio,
		MinWords:   DefaultMinWords,
		MaxRepeats: DefaultMaxRepeats,
	}
	if obj.PassRatio != nil {
		q.PassRatio = *obj.PassRatio
	}
	if obj.MinWords != nil {
		q.MinWords = *obj.MinWords
	}
	if obj.MaxRepeats != nil {
		q.MaxRepeats = *obj.MaxRepeats
	}
	if obj.Example != nil {
		q.Example = strings.TrimSpace(*obj.Example)
	}
	return q, true, nil
}

func parseRubric(qid string, raw json.RawMessage) ([][]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: question %q missing rubric", ErrFormat, qid)
	}
	var rubric [][]string
	if err := json.Unmarshal(raw, &rubric); err != nil {
		return nil, fmt.Errorf("%w: question %q rubric must be a list of lists of strings", ErrFormat, qid)
	}
	if len(rubric) == 0 {
		return nil, fmt.Errorf("%w: question %q has an empty rubric", ErrFormat, qid)
	}
	return rubric, nil
}

// List enumerates candidate deck files in dir: regular *.json files sorted
// case-insensitively by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing decks in %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(filepath.Base(paths[i])) < strings.ToLower(filepath.Base(paths[j]))
	})
	return paths, nil
}
