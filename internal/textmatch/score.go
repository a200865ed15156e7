package textmatch

import (
	"math"
	"strings"
)

// underLengthPenalty discounts coverage when an answer is shorter than the
// question's minimum word count. The penalty is multiplicative rather than a
// zero, so a short but dense answer still earns partial points.
const underLengthPenalty = 0.85

// GroupMatch reports how a single rubric group fared against an answer.
type GroupMatch struct {
	Hit    bool   `json:"hit"`
	Phrase string `json:"phrase,omitempty"` // first phrase found, empty if none
}

// Result is the structured outcome of scoring one answer.
type Result struct {
	WordCount int          `json:"word_count"`
	HitCount  int          `json:"hit_count"`
	Total     int          `json:"total"`
	Coverage  float64      `json:"coverage"`
	Effective float64      `json:"effective"`
	LengthOK  bool         `json:"length_ok"`
	Passed    bool         `json:"passed"`
	Points    int          `json:"points"` // round(effective * 100), in [0,100]
	Groups    []GroupMatch `json:"groups"`
}

// Score evaluates a raw answer against a rubric. Each group is checked in
// order and records the first of its phrases found in the normalized answer.
// Coverage is the fraction of groups hit; the effective score applies the
// under-length penalty; passing requires both the effective score to reach
// passRatio and the answer to meet minWords. Any input, including empty
// text, yields a valid Result.
func Score(rubric [][]string, passRatio float64, minWords int, answer string) Result {
	norm := Normalize(answer)
	wc := WordCount(norm)

	groups := make([]GroupMatch, 0, len(rubric))
	hitCount := 0
	for _, group := range rubric {
		var match GroupMatch
		for _, phrase := range group {
			if strings.Contains(norm, phrase) {
				match = GroupMatch{Hit: true, Phrase: phrase}
				break
			}
		}
		if match.Hit {
			hitCount++
		}
		groups = append(groups, match)
	}

	// A rubric with zero groups is rejected at load time; guard anyway so
	// coverage stays defined.
	total := len(rubric)
	if total < 1 {
		total = 1
	}
	coverage := float64(hitCount) / float64(total)

	lengthOK := wc >= minWords
	effective := coverage
	if !lengthOK {
		effective = coverage * underLengthPenalty
	}

	return Result{
		WordCount: wc,
		HitCount:  hitCount,
		Total:     total,
		Coverage:  coverage,
		Effective: effective,
		LengthOK:  lengthOK,
		Passed:    effective >= passRatio && lengthOK,
		Points:    int(math.Round(effective * 100)),
		Groups:    groups,
	}
}
