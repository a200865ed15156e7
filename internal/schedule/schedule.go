// Package schedule decides which questions are due today. Each deck with a
// due date must keep pace: its remaining unmastered questions are spread
// evenly over the days left. Decks without a deadline impose no quota and
// are only served as fallback filler.
package schedule

import (
	"math/rand"
	"time"

	"github.com/lumio-app/lumio/internal/deck"
)

// DailyQuota computes how many not-yet-mastered questions a deck requires
// today. Quota is recomputed fresh each session, so it grows as a deadline
// approaches if the learner falls behind. A deck that is due today or
// overdue demands everything that is left.
func DailyQuota(dueDate *time.Time, remaining int, today time.Time) int {
	if remaining <= 0 || dueDate == nil {
		return 0
	}
	daysLeft := daysBetween(today, *dueDate)
	if daysLeft <= 0 {
		return remaining
	}
	// ceil(remaining / daysLeft)
	return (remaining + daysLeft - 1) / daysLeft
}

// daysBetween counts whole calendar days from one date to another, ignoring
// the time of day on either side.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// BuildDailyQueue assembles today's cross-deck review queue of global
// question ids. Each deck contributes a uniform random sample of its
// unmastered questions sized by its quota. If no deck demands anything
// (typically because none has a due date), every unmastered question across
// all decks becomes today's pack. The combined queue is shuffled once more
// so decks interleave.
func BuildDailyQueue(decks []deck.Deck, mastered map[string]bool, today time.Time, rng *rand.Rand) []string {
	var queue []string
	for _, d := range decks {
		remaining := unmasteredIDs(d, mastered)
		quota := DailyQuota(d.Meta.DueDate, len(remaining), today)
		if quota <= 0 {
			continue
		}
		rng.Shuffle(len(remaining), func(i, j int) {
			remaining[i], remaining[j] = remaining[j], remaining[i]
		})
		queue = append(queue, remaining[:quota]...)
	}

	if len(queue) == 0 {
		for _, d := range decks {
			queue = append(queue, unmasteredIDs(d, mastered)...)
		}
	}

	rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	return queue
}

func unmasteredIDs(d deck.Deck, mastered map[string]bool) []string {
	ids := make([]string, 0, len(d.Questions))
	for _, q := range d.Questions {
		gid := d.GlobalID(q.ID)
		if !mastered[gid] {
			ids = append(ids, gid)
		}
	}
	return ids
}
