// Package session drives a review run: it holds the live queue, the
// mastered set, and per-question counters, and writes every check through
// to the progress store before the next question can be shown.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/progress"
	"github.com/lumio-app/lumio/internal/schedule"
	"github.com/lumio-app/lumio/internal/textmatch"
)

// ErrComplete is returned by Check when every question of every loaded deck
// is mastered and nothing is left to review.
var ErrComplete = errors.New("session complete")

// ResetScope selects how much state a reset clears.
type ResetScope int

const (
	// ResetToday reshuffles today's pack: only questions in the current
	// pack lose their mastery and counters.
	ResetToday ResetScope = iota
	// ResetAll clears the state of every question in every loaded deck.
	ResetAll
)

// Stats summarizes session progress. DoneToday over TotalToday is the
// progress-bar fraction; the denominator is today's pack, not the full
// deck set.
type Stats struct {
	DoneToday      int `json:"done_today"`
	TotalToday     int `json:"total_today"`
	TotalQuestions int `json:"total_questions"`
	TotalMastered  int `json:"total_mastered"`
	QueueLength    int `json:"queue_length"`
}

// Question is the session's view of the current head of the queue.
type Question struct {
	GlobalID  string `json:"global_id"`
	DeckTitle string `json:"deck_title"`
	Prompt    string `json:"prompt"`
	MinWords  int    `json:"min_words"`
}

// CheckResult is the outcome of scoring one answer, with everything a
// presenting layer needs to render feedback.
type CheckResult struct {
	GlobalID string           `json:"global_id"`
	Score    textmatch.Result `json:"score"`
	Rubric   [][]string       `json:"rubric"`
	Example  string           `json:"example"`
	Attempts int              `json:"attempts"`
	Fails    int              `json:"fails"`
	Stats    Stats            `json:"stats"`
}

// Session is the live review state for one run. Construct it with New at
// session start; persistent truth lives in the progress store, the session
// is discarded at process end.
type Session struct {
	id        string
	decks     []deck.Deck
	questions map[string]deck.TextQuestion // by global id
	order     []string                     // all global ids, deck order
	store     progress.Store
	db        *progress.DB

	queue    []string
	mastered map[string]bool
	todaySet map[string]bool
	attempts map[string]int
	fails    map[string]int
	points   map[string]int

	logger *zap.Logger
	rng    *rand.Rand
	now    func() time.Time
}

// New builds a session over the given decks, seeding mastery and counters
// from the progress store and asking the scheduler for today's queue. A
// corrupt progress file is logged and treated as empty history.
func New(decks []deck.Deck, store progress.Store) (*Session, error) {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	logger, err := logConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger = zap.NewNop()
	}
	return NewWithLogger(decks, store, logger)
}

// NewWithLogger is New with an injected logger, used by tests and by
// callers that own logging configuration.
func NewWithLogger(decks []deck.Deck, store progress.Store, logger *zap.Logger) (*Session, error) {
	if len(decks) == 0 {
		return nil, errors.New("session needs at least one deck")
	}

	s := &Session{
		id:        uuid.New().String(),
		decks:     decks,
		questions: make(map[string]deck.TextQuestion),
		store:     store,
		mastered:  make(map[string]bool),
		todaySet:  make(map[string]bool),
		attempts:  make(map[string]int),
		fails:     make(map[string]int),
		points:    make(map[string]int),
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}

	for _, d := range decks {
		for _, q := range d.Questions {
			gid := d.GlobalID(q.ID)
			if _, dup := s.questions[gid]; dup {
				return nil, fmt.Errorf("duplicate question id %q", gid)
			}
			s.questions[gid] = q
			s.order = append(s.order, gid)
			s.points[gid] = progress.NeverScored
		}
	}

	db, err := store.Load()
	if err != nil {
		if !errors.Is(err, progress.ErrCorrupt) {
			return nil, fmt.Errorf("loading progress: %w", err)
		}
		s.logger.Warn("progress file corrupt, starting with empty history",
			zap.String("session_id", s.id), zap.Error(err))
	}
	s.db = db

	for _, d := range decks {
		for _, q := range d.Questions {
			rec, ok := db.Get(d.Key, q.ID)
			if !ok {
				continue
			}
			gid := d.GlobalID(q.ID)
			s.attempts[gid] = rec.Attempts
			s.fails[gid] = rec.Fails
			s.points[gid] = rec.Points
			if rec.Mastered {
				s.mastered[gid] = true
			}
		}
	}

	s.rebuildQueue()
	s.todaySet = make(map[string]bool, len(s.queue))
	for _, gid := range s.queue {
		s.todaySet[gid] = true
	}

	s.logger.Debug("session started",
		zap.String("session_id", s.id),
		zap.Int("decks", len(decks)),
		zap.Int("questions", len(s.questions)),
		zap.Int("today", len(s.queue)),
		zap.Int("already_mastered", len(s.mastered)))
	return s, nil
}

// rebuildQueue asks the scheduler for a fresh queue against the mastered
// set as it is right now, so a question mastered earlier today can never
// re-enter.
func (s *Session) rebuildQueue() {
	s.queue = schedule.BuildDailyQueue(s.decks, s.mastered, s.now(), s.rng)
}

// Current returns the question at the head of the queue. Heads that are
// already mastered are dropped silently; when the queue runs empty while
// unmastered questions remain, the scheduler rebuilds it. The second return
// is false only when every question is mastered.
func (s *Session) Current() (Question, bool) {
	gid, ok := s.currentID()
	if !ok {
		return Question{}, false
	}
	q := s.questions[gid]
	deckKey, _ := deck.SplitGlobalID(gid)
	return Question{
		GlobalID:  gid,
		DeckTitle: s.deckTitle(deckKey),
		Prompt:    q.Prompt,
		MinWords:  q.MinWords,
	}, true
}

func (s *Session) currentID() (string, bool) {
	s.dropMasteredHead()
	if len(s.queue) == 0 {
		if len(s.mastered) == len(s.questions) {
			return "", false
		}
		s.logger.Debug("queue empty with questions remaining, rebuilding",
			zap.String("session_id", s.id),
			zap.Int("mastered", len(s.mastered)),
			zap.Int("total", len(s.questions)))
		s.rebuildQueue()
		s.dropMasteredHead()
		if len(s.queue) == 0 {
			return "", false
		}
		// Rebuilt ids join today's pack so the progress denominator
		// stays consistent.
		for _, gid := range s.queue {
			s.todaySet[gid] = true
		}
	}
	return s.queue[0], true
}

func (s *Session) dropMasteredHead() {
	for len(s.queue) > 0 && s.mastered[s.queue[0]] {
		s.queue = s.queue[1:]
	}
}

// Check scores an answer against the current question, updates counters and
// the queue, and persists the question's record before returning. A passed
// question retires to the mastered set; a failed one is requeued at the
// tail for another attempt later in the same pass. Returns ErrComplete when
// there is nothing left to review.
func (s *Session) Check(answer string) (CheckResult, error) {
	gid, ok := s.currentID()
	if !ok {
		return CheckResult{}, ErrComplete
	}
	q := s.questions[gid]

	s.attempts[gid]++
	res := textmatch.Score(q.Rubric, q.PassRatio, q.MinWords, answer)
	s.points[gid] = res.Points

	if res.Passed {
		s.mastered[gid] = true
		s.queue = s.queue[1:]
	} else {
		s.fails[gid]++
		s.queue = s.queue[1:]
		s.queue = append(s.queue, gid)
	}

	deckKey, qid := deck.SplitGlobalID(gid)
	rec := progress.Record{
		Mastered: res.Passed,
		Attempts: s.attempts[gid],
		Fails:    s.fails[gid],
		Points:   res.Points,
	}
	if err := s.store.Persist(s.db, deckKey, qid, rec); err != nil {
		return CheckResult{}, fmt.Errorf("persisting progress for %s: %w", gid, err)
	}

	s.logger.Debug("answer checked",
		zap.String("session_id", s.id),
		zap.String("global_id", gid),
		zap.Bool("passed", res.Passed),
		zap.Int("points", res.Points),
		zap.Int("attempts", s.attempts[gid]),
		zap.Int("queue_length", len(s.queue)))

	return CheckResult{
		GlobalID: gid,
		Score:    res,
		Rubric:   q.Rubric,
		Example:  q.Example,
		Attempts: s.attempts[gid],
		Fails:    s.fails[gid],
		Stats:    s.Progress(),
	}, nil
}

// Reset clears mastery and counters for the chosen scope, persists the
// zeroed records in one snapshot write, and rebuilds the queue.
func (s *Session) Reset(scope ResetScope) error {
	var affected []string
	switch scope {
	case ResetToday:
		for gid := range s.todaySet {
			affected = append(affected, gid)
		}
	case ResetAll:
		affected = append(affected, s.order...)
	default:
		return fmt.Errorf("unknown reset scope %d", scope)
	}

	for _, gid := range affected {
		delete(s.mastered, gid)
		s.attempts[gid] = 0
		s.fails[gid] = 0
		s.points[gid] = progress.NeverScored
		deckKey, qid := deck.SplitGlobalID(gid)
		s.db.Set(deckKey, qid, progress.Record{
			Points:    progress.NeverScored,
			UpdatedAt: s.now().Unix(),
		})
	}
	if err := s.store.Save(s.db); err != nil {
		return fmt.Errorf("persisting reset: %w", err)
	}

	s.rebuildQueue()
	s.todaySet = make(map[string]bool, len(s.queue))
	for _, gid := range s.queue {
		s.todaySet[gid] = true
	}

	s.logger.Info("session reset",
		zap.String("session_id", s.id),
		zap.Int("scope", int(scope)),
		zap.Int("affected", len(affected)),
		zap.Int("queue_length", len(s.queue)))
	return nil
}

// Progress reports the session counters.
func (s *Session) Progress() Stats {
	done := 0
	for gid := range s.todaySet {
		if s.mastered[gid] {
			done++
		}
	}
	return Stats{
		DoneToday:      done,
		TotalToday:     len(s.todaySet),
		TotalQuestions: len(s.questions),
		TotalMastered:  len(s.mastered),
		QueueLength:    len(s.queue),
	}
}

// Counters returns the live per-question counters keyed by global id.
func (s *Session) Counters(gid string) (attempts, fails, points int, mastered bool) {
	return s.attempts[gid], s.fails[gid], s.points[gid], s.mastered[gid]
}

// Decks returns the decks this session reviews.
func (s *Session) Decks() []deck.Deck {
	return s.decks
}

// ID returns the session's correlation id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) deckTitle(deckKey string) string {
	for i := range s.decks {
		if s.decks[i].Key == deckKey {
			return s.decks[i].Title()
		}
	}
	return deckKey
}
