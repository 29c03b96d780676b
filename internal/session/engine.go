// Package session implements the study session engine: it builds a
// question list from the card table, records raw answers as the user
// works through it, and on completion scores every question, persists
// the attempts and feeds each result into the scheduler.
package session

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/logger"
	"github.com/testdeck/testdeck/internal/mathutil"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/store"
)

// Item is one question slot in a session. DisplayID identifies the
// slot; padded duplicates of the same card get distinct display ids so
// each repeat is answered independently.
type Item struct {
	DisplayID int64       `json:"display_id"`
	Card      models.Card `json:"card"`
}

// Options select and size the question list.
type Options struct {
	// Subject filters candidates to one subject; empty means all.
	Subject string
	// Difficulties filters to the given levels; empty means all.
	Difficulties []int
	// QuestionCount is the exact length of the resolved list.
	QuestionCount int
	// Type is practice or test.
	Type models.SessionType
}

// Engine drives one study session at a time against a borrowed store.
// A single mutex serializes every operation; handlers share one engine
// across request goroutines.
type Engine struct {
	store *store.Store
	log   *logger.Logger
	rng   *rand.Rand
	now   func() time.Time

	mu          sync.Mutex
	sessionID   int64
	sessionType models.SessionType
	items       []Item
	answers     map[int64]string
	startedAt   map[int64]time.Time
	current     int
}

// New creates an engine over the given store.
func New(st *store.Store) *Engine {
	return &Engine{
		store: st,
		log:   logger.Default().WithPrefix("session"),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// Active reports whether a session is open.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active()
}

// active is Active without the lock. Callers must hold the mutex.
func (e *Engine) active() bool {
	return e.sessionID != 0
}

// Start builds the question list and opens a session. Any previously
// open session is discarded without being persisted as ended. The
// resolved list has exactly opt.QuestionCount items: a short candidate
// pool is padded with random repeats, a long one is truncated.
func (e *Engine) Start(opt Options) ([]Item, error) {
	if opt.QuestionCount <= 0 {
		return nil, apperrors.NewBadRequestError("question count must be positive")
	}
	if opt.Type == "" {
		opt.Type = models.Practice
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active() {
		e.log.Warn("starting a new session, discarding unfinished session %d", e.sessionID)
		e.reset()
	}

	candidates := e.store.GetAllCards()
	if opt.Subject != "" {
		candidates = e.store.GetCardsBySubject(opt.Subject)
	}
	if len(opt.Difficulties) > 0 {
		wanted := make(map[int]bool, len(opt.Difficulties))
		for _, d := range opt.Difficulties {
			wanted[d] = true
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if wanted[c.Difficulty] {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewEmptySelectionError()
	}

	// Fisher-Yates shuffle.
	for i := len(candidates) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	items := make([]Item, 0, opt.QuestionCount)
	nextDisplayID := int64(1)
	for _, c := range candidates {
		if len(items) == opt.QuestionCount {
			break
		}
		items = append(items, Item{DisplayID: nextDisplayID, Card: c})
		nextDisplayID++
	}
	for len(items) < opt.QuestionCount {
		c := candidates[e.rng.Intn(len(candidates))]
		items = append(items, Item{DisplayID: nextDisplayID, Card: c})
		nextDisplayID++
	}

	sessionID, err := e.store.CreateSession(models.StudySession{
		StartedAt:      e.now(),
		TotalQuestions: len(items),
		SessionType:    opt.Type,
	})
	if err != nil {
		return nil, err
	}

	e.sessionID = sessionID
	e.sessionType = opt.Type
	e.items = items
	e.answers = make(map[int64]string, len(items))
	e.startedAt = map[int64]time.Time{items[0].DisplayID: e.now()}
	e.current = 0

	e.log.Info("session %d started: %d questions from %d candidates (type=%s)",
		sessionID, len(items), len(candidates), opt.Type)
	return append([]Item(nil), items...), nil
}

// Answer records the raw answer for a question slot. Correctness is not
// computed until the session ends; answering the same slot again
// overwrites the earlier answer.
func (e *Engine) Answer(displayID int64, answer string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return apperrors.NewBadRequestError("no active session")
	}
	idx := -1
	for i, item := range e.items {
		if item.DisplayID == displayID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return apperrors.NewNotFoundError("question", displayID)
	}

	e.answers[displayID] = answer
	if idx >= e.current {
		e.current = idx + 1
		if e.current < len(e.items) {
			next := e.items[e.current].DisplayID
			if _, ok := e.startedAt[next]; !ok {
				e.startedAt[next] = e.now()
			}
		}
	}
	return nil
}

// Result is the aggregate outcome of an ended session.
type Result struct {
	Session  models.StudySession `json:"session"`
	Correct  int                 `json:"correct"`
	Total    int                 `json:"total"`
	Accuracy int                 `json:"accuracy"`
}

// End scores every question, persists one attempt per slot, updates
// scheduling state, and finalizes the session row. A session ends
// exactly once; afterwards the engine holds no open session.
func (e *Engine) End() (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return Result{}, apperrors.NewBadRequestError("no active session")
	}

	correct := 0
	for _, item := range e.items {
		answer := e.answers[item.DisplayID] // empty when skipped
		isCorrect := IsCorrect(item.Card, answer)
		if isCorrect {
			correct++
		}
		if _, err := e.store.RecordAttempt(models.Attempt{
			CardID:     item.Card.ID,
			SessionID:  e.sessionID,
			UserAnswer: answer,
			IsCorrect:  isCorrect,
			TimeSpent:  e.timeSpent(item.DisplayID),
		}); err != nil {
			e.log.Error("failed to record attempt for card %d: %v", item.Card.ID, err)
		}
	}

	if err := e.store.EndSession(e.sessionID, correct); err != nil {
		return Result{}, err
	}
	sess, err := e.store.GetSession(e.sessionID)
	if err != nil {
		return Result{}, err
	}

	total := len(e.items)
	e.log.Info("session %d ended: %d/%d correct", e.sessionID, correct, total)
	e.reset()

	return Result{
		Session:  sess,
		Correct:  correct,
		Total:    total,
		Accuracy: mathutil.SafePercentage(correct, total),
	}, nil
}

// Progress reports how far the session has advanced.
func (e *Engine) Progress() (answered, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.answers), len(e.items)
}

// Items returns the resolved question list of the open session.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Item(nil), e.items...)
}

func (e *Engine) timeSpent(displayID int64) int {
	started, ok := e.startedAt[displayID]
	if !ok {
		return 0
	}
	spent := int(e.now().Sub(started).Seconds())
	if spent < 0 {
		return 0
	}
	return spent
}

func (e *Engine) reset() {
	e.sessionID = 0
	e.sessionType = ""
	e.items = nil
	e.answers = nil
	e.startedAt = nil
	e.current = 0
}

// IsCorrect checks a raw answer against a card. Comparison is
// whitespace- and case-insensitive with the punctuation .,;:!? removed.
// A fill-in-blank card accepts any of its comma-separated synonyms; a
// multiple-choice card requires the matching letter. An empty answer
// never matches.
func IsCorrect(card models.Card, answer string) bool {
	normalized := normalizeAnswer(answer)
	if normalized == "" {
		return false
	}
	if card.Kind() == models.FillInBlank {
		for _, option := range strings.Split(card.BlankAnswer, ",") {
			if normalized == normalizeAnswer(option) {
				return true
			}
		}
		return false
	}
	return normalized == normalizeAnswer(card.CorrectAnswer)
}

var punctuationReplacer = strings.NewReplacer(".", "", ",", "", ";", "", ":", "", "!", "", "?", "")

func normalizeAnswer(s string) string {
	return strings.TrimSpace(punctuationReplacer.Replace(strings.ToLower(s)))
}
