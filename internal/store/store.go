// Package store owns the four record tables (cards, sessions, attempts,
// stats) and their durable mirror in the slot namespace. All access goes
// through the Store's operations; other components borrow views or
// request mutations, never hold private copies.
package store

import (
	"sort"
	"sync"
	"time"

	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/logger"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/sm2"
	"github.com/testdeck/testdeck/internal/storage"
	"github.com/testdeck/testdeck/internal/validate"
)

// Slot keys within the namespace. Keys without the testdeck- prefix
// belong to other tenants of the namespace and are fair game for the
// emergency cleanup.
const (
	PrimaryKey      = "testdeck-data"
	BackupKey       = "testdeck-backup"
	LegacyKey       = "testdeck-legacy"
	LegacyBackupKey = "testdeck-legacy-backup"
)

// Scratch keys holding unsaved UI drafts; cleared first when storage
// runs out.
var scratchKeys = []string{"create-card-draft", "quick-card-draft"}

// Options tune the save pipeline. Zero values fall back to defaults.
type Options struct {
	// SoftLimitBytes triggers age-based pruning before a primary write.
	SoftLimitBytes int64
	// BackupLimitBytes is the ceiling under which backup writes happen.
	BackupLimitBytes int64
	// BackupInterval is the minimum spacing between backup writes.
	BackupInterval time.Duration
	// AutosaveDelay is the debounce window for mutation-triggered saves.
	AutosaveDelay time.Duration
	// RetentionDays bounds the age of sessions and attempts kept by the
	// pruning routine. Cards and stats are never pruned by age.
	RetentionDays int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.SoftLimitBytes == 0 {
		o.SoftLimitBytes = 4 << 20
	}
	if o.BackupLimitBytes == 0 {
		o.BackupLimitBytes = 3 << 20
	}
	if o.BackupInterval == 0 {
		o.BackupInterval = 10 * time.Minute
	}
	if o.AutosaveDelay == 0 {
		o.AutosaveDelay = 2 * time.Second
	}
	if o.RetentionDays == 0 {
		o.RetentionDays = 30
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Store is the record database: in-memory tables mirrored to a primary
// slot, with a periodically refreshed backup slot. A single mutex
// serializes every operation; the durable write is deferred through a
// debounced saver.
type Store struct {
	mu  sync.Mutex
	ns  storage.Namespace
	log *logger.Logger
	opt Options

	cards    []models.Card
	sessions []models.StudySession
	attempts []models.Attempt
	stats    []models.CardStats

	nextID       int64
	lastBackupAt time.Time
	migrated     bool

	saver *saver
}

// New creates a Store over the given namespace. Call Load before use.
func New(ns storage.Namespace, opt Options) *Store {
	opt.applyDefaults()
	s := &Store{
		ns:     ns,
		log:    logger.Default().WithPrefix("store"),
		opt:    opt,
		nextID: 1,
	}
	s.saver = newSaver(opt.AutosaveDelay, s.autosave)
	return s
}

// Flush cancels any pending debounced save and persists synchronously.
func (s *Store) Flush() error {
	s.saver.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// Close flushes and releases the namespace. The store must not be used
// afterwards.
func (s *Store) Close() error {
	flushErr := s.Flush()
	s.saver.cancel()
	if err := s.ns.Close(); err != nil {
		return err
	}
	return flushErr
}

// autosave runs when the debounce timer fires. It serializes the table
// state at fire time, not at schedule time.
func (s *Store) autosave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(); err != nil {
		s.log.Error("debounced save failed: %v", err)
	}
}

// scheduleSave resets the debounce window after a mutation. Callers
// must hold the mutex.
func (s *Store) scheduleSave() {
	s.saver.schedule()
}

// genID returns the next record id. Ids are monotonic within a store
// lifetime and seeded above the highest id seen at load.
func (s *Store) genID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// CreateCard validates and inserts a card, returning its id.
func (s *Store) CreateCard(c models.Card) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validate.Card(c) {
		s.log.Warn("rejecting invalid card: subject=%q type=%s", c.Subject, c.Kind())
		return 0, apperrors.NewValidationError("card", "missing required fields for its question type")
	}

	now := s.opt.Now()
	c.ID = s.genID()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.cards = append(s.cards, c)
	s.scheduleSave()

	s.log.Debug("card created: id=%d subject=%s", c.ID, c.Subject)
	return c.ID, nil
}

// CreateCards bulk-inserts cards, silently dropping invalid ones, and
// returns the ids of the inserted cards.
func (s *Store) CreateCards(cards []models.Card) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opt.Now()
	var ids []int64
	for _, c := range cards {
		if !validate.Card(c) {
			continue
		}
		c.ID = s.genID()
		c.CreatedAt = now
		c.UpdatedAt = now
		s.cards = append(s.cards, c)
		ids = append(ids, c.ID)
	}
	if len(ids) > 0 {
		s.scheduleSave()
	}
	s.log.Debug("batch insert: %d of %d cards accepted", len(ids), len(cards))
	return ids
}

// GetAllCards returns a copy of the card table, newest first.
func (s *Store) GetAllCards() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortCardsNewestFirst(append([]models.Card(nil), s.cards...))
}

// GetCard returns the card with the given id.
func (s *Store) GetCard(id int64) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Card{}, apperrors.NewNotFoundError("card", id)
}

// GetCardsBySubject returns the cards in the given subject, newest first.
func (s *Store) GetCardsBySubject(subject string) []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Card
	for _, c := range s.cards {
		if c.Subject == subject {
			out = append(out, c)
		}
	}
	return sortCardsNewestFirst(out)
}

// Subjects returns the distinct subjects present, sorted.
func (s *Store) Subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var subjects []string
	for _, c := range s.cards {
		if !seen[c.Subject] {
			seen[c.Subject] = true
			subjects = append(subjects, c.Subject)
		}
	}
	sort.Strings(subjects)
	return subjects
}

// UpdateCard mutates a card in place. The card keeps its creation time
// and gets a fresh updated_at.
func (s *Store) UpdateCard(c models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validate.Card(c) {
		return apperrors.NewValidationError("card", "missing required fields for its question type")
	}
	for i := range s.cards {
		if s.cards[i].ID == c.ID {
			c.CreatedAt = s.cards[i].CreatedAt
			c.UpdatedAt = s.opt.Now()
			s.cards[i] = c
			s.scheduleSave()
			s.log.Debug("card updated: id=%d", c.ID)
			return nil
		}
	}
	return apperrors.NewNotFoundError("card", c.ID)
}

// DeleteCard removes a card. Its stats and attempts are left in place
// as orphans; only the integrity auditor removes those.
func (s *Store) DeleteCard(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			s.scheduleSave()
			s.log.Debug("card deleted: id=%d", id)
			return nil
		}
	}
	return apperrors.NewNotFoundError("card", id)
}

// CreateSession inserts a study session row and returns its id.
func (s *Store) CreateSession(sess models.StudySession) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.StartedAt.IsZero() {
		sess.StartedAt = s.opt.Now()
	}
	if !validate.Session(sess) {
		return 0, apperrors.NewValidationError("session", "incomplete session record")
	}
	sess.ID = s.genID()
	s.sessions = append(s.sessions, sess)
	s.scheduleSave()

	s.log.Debug("session created: id=%d type=%s questions=%d", sess.ID, sess.SessionType, sess.TotalQuestions)
	return sess.ID, nil
}

// EndSession stamps ended_at and the final correct count on a session.
func (s *Store) EndSession(id int64, correctAnswers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == id {
			now := s.opt.Now()
			s.sessions[i].EndedAt = &now
			s.sessions[i].CorrectAnswers = correctAnswers
			s.scheduleSave()
			s.log.Debug("session ended: id=%d correct=%d", id, correctAnswers)
			return nil
		}
	}
	return apperrors.NewNotFoundError("session", id)
}

// GetSession returns the session with the given id.
func (s *Store) GetSession(id int64) (models.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return models.StudySession{}, apperrors.NewNotFoundError("session", id)
}

// RecordAttempt appends an attempt and feeds the result into the card's
// scheduling state. Attempts are never mutated after creation.
func (s *Store) RecordAttempt(a models.Attempt) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.genID()
	a.AttemptedAt = s.opt.Now()
	if !validate.Attempt(a) {
		return 0, apperrors.NewValidationError("attempt", "missing card or session reference")
	}
	s.attempts = append(s.attempts, a)
	s.upsertStats(a.CardID, a.IsCorrect)
	s.scheduleSave()

	s.log.Debug("attempt recorded: id=%d card_id=%d correct=%v", a.ID, a.CardID, a.IsCorrect)
	return a.ID, nil
}

// UpsertStats applies one review result to a card's scheduling state,
// creating the stats row lazily on first attempt.
func (s *Store) UpsertStats(cardID int64, isCorrect bool) models.CardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.upsertStats(cardID, isCorrect)
	s.scheduleSave()
	return st
}

func (s *Store) upsertStats(cardID int64, isCorrect bool) models.CardStats {
	now := s.opt.Now()

	idx := -1
	for i := range s.stats {
		if s.stats[i].CardID == cardID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.stats = append(s.stats, models.CardStats{
			ID:           s.genID(),
			CardID:       cardID,
			NextReview:   now,
			EaseFactor:   sm2.DefaultState().EaseFactor,
			IntervalDays: 1,
		})
		idx = len(s.stats) - 1
	}

	st := &s.stats[idx]
	st.TotalAttempts++
	if isCorrect {
		st.CorrectAttempts++
	}

	next := sm2.Review(sm2.State{
		Repetitions:  st.Repetitions,
		EaseFactor:   st.EaseFactor,
		IntervalDays: st.IntervalDays,
	}, isCorrect)

	st.Repetitions = next.Repetitions
	st.EaseFactor = next.EaseFactor
	st.IntervalDays = next.IntervalDays
	st.LastAttempt = &now
	st.NextReview = sm2.NextReview(now, next.IntervalDays)

	s.log.Debug("stats updated: card_id=%d reps=%d interval=%d ease=%.2f",
		cardID, st.Repetitions, st.IntervalDays, st.EaseFactor)
	return *st
}

// StatsForCard returns the stats row for a card, if one exists.
func (s *Store) StatsForCard(cardID int64) (models.CardStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stats {
		if st.CardID == cardID {
			return st, true
		}
	}
	return models.CardStats{}, false
}

// DueCards returns all cards in review priority order: due cards first
// (oldest overdue leading), then upcoming cards by their next review.
// Cards that have never been attempted count as due now.
func (s *Store) DueCards() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opt.Now()
	byCard := make(map[int64]models.CardStats, len(s.stats))
	for _, st := range s.stats {
		byCard[st.CardID] = st
	}

	ordered := make([]models.CardStats, 0, len(s.cards))
	for _, c := range s.cards {
		st, ok := byCard[c.ID]
		if !ok {
			st = models.CardStats{CardID: c.ID, NextReview: now}
		}
		ordered = append(ordered, st)
	}
	sm2.SortByPriority(ordered, now)

	cardByID := make(map[int64]models.Card, len(s.cards))
	for _, c := range s.cards {
		cardByID[c.ID] = c
	}
	out := make([]models.Card, 0, len(ordered))
	for _, st := range ordered {
		out = append(out, cardByID[st.CardID])
	}
	return out
}

// Counts reports the current table sizes.
func (s *Store) Counts() (cards, sessions, attempts, stats int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards), len(s.sessions), len(s.attempts), len(s.stats)
}

func sortCardsNewestFirst(cards []models.Card) []models.Card {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].CreatedAt.After(cards[j].CreatedAt)
	})
	return cards
}
