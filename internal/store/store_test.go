package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/storage"
	"github.com/testdeck/testdeck/internal/store"
	"github.com/testdeck/testdeck/internal/testutil"
)

func TestCreateAndGetCard(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	id, err := st.CreateCard(testutil.ChoiceCard("Geography"))
	require.NoError(t, err)
	require.NotZero(t, id)

	card, err := st.GetCard(id)
	require.NoError(t, err)
	assert.Equal(t, "Geography", card.Subject)
	assert.Equal(t, models.MultipleChoice, card.Kind())
	assert.False(t, card.CreatedAt.IsZero())

	_, err = st.GetCard(9999)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeNotFound, appErr.Code)
}

func TestCreateCardRejectsInvalid(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	missing := testutil.ChoiceCard("Geography")
	missing.CorrectAnswer = ""
	_, err := st.CreateCard(missing)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)

	cards, _, _, _ := st.Counts()
	assert.Zero(t, cards)
}

func TestCreateCardsDropsInvalidSilently(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	bad := testutil.BlankCard("History")
	bad.BlankAnswer = ""
	ids := st.CreateCards([]models.Card{
		testutil.ChoiceCard("History"),
		bad,
		testutil.BlankCard("History"),
	})
	assert.Len(t, ids, 2)

	cards, _, _, _ := st.Counts()
	assert.Equal(t, 2, cards)
}

func TestGetAllCardsNewestFirst(t *testing.T) {
	now := time.Now()
	clock := now
	ns := storage.NewMemory(0)
	st := store.New(ns, store.Options{
		AutosaveDelay: time.Hour,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, st.Load())
	defer testutil.MustClose(t, st)

	first, err := st.CreateCard(testutil.ChoiceCard("A"))
	require.NoError(t, err)
	clock = now.Add(time.Minute)
	second, err := st.CreateCard(testutil.ChoiceCard("B"))
	require.NoError(t, err)

	all := st.GetAllCards()
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID)
	assert.Equal(t, first, all[1].ID)
}

func TestUpdateCardPreservesCreatedAt(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	id, err := st.CreateCard(testutil.ChoiceCard("Geography"))
	require.NoError(t, err)
	before, err := st.GetCard(id)
	require.NoError(t, err)

	updated := before
	updated.Question = "Largest city in France?"
	require.NoError(t, st.UpdateCard(updated))

	after, err := st.GetCard(id)
	require.NoError(t, err)
	assert.Equal(t, "Largest city in France?", after.Question)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)

	ghost := testutil.ChoiceCard("Geography")
	ghost.ID = 9999
	err = st.UpdateCard(ghost)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeNotFound, appErr.Code)
}

func TestDeleteCardLeavesHistoryInPlace(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	id, err := st.CreateCard(testutil.ChoiceCard("Geography"))
	require.NoError(t, err)
	sessID, err := st.CreateSession(models.StudySession{TotalQuestions: 1, SessionType: models.Practice})
	require.NoError(t, err)
	_, err = st.RecordAttempt(models.Attempt{CardID: id, SessionID: sessID, UserAnswer: "A", IsCorrect: true})
	require.NoError(t, err)

	require.NoError(t, st.DeleteCard(id))

	cards, sessions, attempts, stats := st.Counts()
	assert.Zero(t, cards)
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, stats)
}

func TestSubjectsAndFiltering(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	_, err := st.CreateCard(testutil.ChoiceCard("History"))
	require.NoError(t, err)
	_, err = st.CreateCard(testutil.ChoiceCard("Biology"))
	require.NoError(t, err)
	_, err = st.CreateCard(testutil.BlankCard("Biology"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Biology", "History"}, st.Subjects())
	assert.Len(t, st.GetCardsBySubject("Biology"), 2)
	assert.Empty(t, st.GetCardsBySubject("Chemistry"))
}

func TestSessionLifecycle(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	id, err := st.CreateSession(models.StudySession{TotalQuestions: 10, SessionType: models.Test})
	require.NoError(t, err)

	sess, err := st.GetSession(id)
	require.NoError(t, err)
	assert.Nil(t, sess.EndedAt)
	assert.False(t, sess.StartedAt.IsZero())

	require.NoError(t, st.EndSession(id, 7))
	sess, err = st.GetSession(id)
	require.NoError(t, err)
	require.NotNil(t, sess.EndedAt)
	assert.Equal(t, 7, sess.CorrectAnswers)
}

func TestRecordAttemptDrivesScheduling(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	cardID, err := st.CreateCard(testutil.ChoiceCard("Geography"))
	require.NoError(t, err)
	sessID, err := st.CreateSession(models.StudySession{TotalQuestions: 2, SessionType: models.Practice})
	require.NoError(t, err)

	_, err = st.RecordAttempt(models.Attempt{CardID: cardID, SessionID: sessID, UserAnswer: "A", IsCorrect: true})
	require.NoError(t, err)

	stats, ok := st.StatsForCard(cardID)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Repetitions)
	assert.Equal(t, 1, stats.IntervalDays)
	assert.InDelta(t, 2.6, stats.EaseFactor, 1e-9)
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Equal(t, 1, stats.CorrectAttempts)
	require.NotNil(t, stats.LastAttempt)

	_, err = st.RecordAttempt(models.Attempt{CardID: cardID, SessionID: sessID, UserAnswer: "A", IsCorrect: true})
	require.NoError(t, err)

	stats, ok = st.StatsForCard(cardID)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Repetitions)
	assert.Equal(t, 6, stats.IntervalDays)
	assert.Equal(t, 2, stats.TotalAttempts)
}

func TestRecordAttemptRejectsMissingReferences(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	_, err := st.RecordAttempt(models.Attempt{CardID: 0, SessionID: 1})
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
}

func TestDueCardsUnattemptedComeFirst(t *testing.T) {
	now := time.Now()
	clock := now
	ns := storage.NewMemory(0)
	st := store.New(ns, store.Options{
		AutosaveDelay: time.Hour,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, st.Load())
	defer testutil.MustClose(t, st)

	reviewed, err := st.CreateCard(testutil.ChoiceCard("A"))
	require.NoError(t, err)
	fresh, err := st.CreateCard(testutil.ChoiceCard("B"))
	require.NoError(t, err)

	sessID, err := st.CreateSession(models.StudySession{TotalQuestions: 1, SessionType: models.Practice})
	require.NoError(t, err)
	_, err = st.RecordAttempt(models.Attempt{CardID: reviewed, SessionID: sessID, UserAnswer: "A", IsCorrect: true})
	require.NoError(t, err)

	// The reviewed card is now scheduled a day out; the fresh card is
	// due immediately and must lead.
	due := st.DueCards()
	require.Len(t, due, 2)
	assert.Equal(t, fresh, due[0].ID)
	assert.Equal(t, reviewed, due[1].ID)
}

func TestRoundTripThroughNamespace(t *testing.T) {
	ns := storage.NewMemory(0)
	st := store.New(ns, store.Options{AutosaveDelay: time.Hour})
	require.NoError(t, st.Load())

	cardID, err := st.CreateCard(testutil.ChoiceCard("Geography"))
	require.NoError(t, err)
	sessID, err := st.CreateSession(models.StudySession{TotalQuestions: 1, SessionType: models.Practice})
	require.NoError(t, err)
	_, err = st.RecordAttempt(models.Attempt{CardID: cardID, SessionID: sessID, UserAnswer: "A", IsCorrect: true})
	require.NoError(t, err)
	require.NoError(t, st.Flush())

	reopened := store.New(ns, store.Options{AutosaveDelay: time.Hour})
	require.NoError(t, reopened.Load())
	defer testutil.MustClose(t, reopened)

	cards, sessions, attempts, stats := reopened.Counts()
	assert.Equal(t, 1, cards)
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, stats)

	card, err := reopened.GetCard(cardID)
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", card.Question)

	// Ids allocated after a reload never collide with persisted ones.
	newID, err := reopened.CreateCard(testutil.ChoiceCard("History"))
	require.NoError(t, err)
	assert.Greater(t, newID, cardID)
	assert.Greater(t, newID, sessID)
}
