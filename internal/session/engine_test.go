package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/session"
	"github.com/testdeck/testdeck/internal/store"
	"github.com/testdeck/testdeck/internal/testutil"
)

func seedCards(t *testing.T, st *store.Store, subject string, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		card := testutil.ChoiceCard(subject)
		card.Question = fmt.Sprintf("%s question %d", subject, i)
		id, err := st.CreateCard(card)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestStartPadsShortPool(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 4)

	eng := session.New(st)
	items, err := eng.Start(session.Options{QuestionCount: 15})
	require.NoError(t, err)
	require.Len(t, items, 15)

	// Display ids are sequential and unique even though cards repeat.
	seen := make(map[int64]bool)
	for i, item := range items {
		assert.Equal(t, int64(i+1), item.DisplayID)
		assert.False(t, seen[item.DisplayID])
		seen[item.DisplayID] = true
	}

	// The first four slots cover the whole pool before any repeats.
	firstFour := make(map[int64]bool)
	for _, item := range items[:4] {
		firstFour[item.Card.ID] = true
	}
	assert.Len(t, firstFour, 4)
}

func TestStartTruncatesLongPool(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 20)

	eng := session.New(st)
	items, err := eng.Start(session.Options{QuestionCount: 5})
	require.NoError(t, err)
	require.Len(t, items, 5)

	// No card appears twice while the pool still has unused cards.
	seen := make(map[int64]bool)
	for _, item := range items {
		assert.False(t, seen[item.Card.ID])
		seen[item.Card.ID] = true
	}
}

func TestStartFilters(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 3)

	hard := testutil.BlankCard("History")
	hard.Difficulty = 3
	_, err := st.CreateCard(hard)
	require.NoError(t, err)

	eng := session.New(st)

	items, err := eng.Start(session.Options{Subject: "History", QuestionCount: 2})
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, "History", item.Card.Subject)
	}

	items, err = eng.Start(session.Options{Difficulties: []int{3}, QuestionCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, items[0].Card.Difficulty)
}

func TestStartEmptySelection(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 3)

	eng := session.New(st)
	_, err := eng.Start(session.Options{Subject: "Astronomy", QuestionCount: 5})
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeEmptySelection, appErr.Code)
	assert.False(t, eng.Active())

	_, err = eng.Start(session.Options{QuestionCount: 0})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeBadRequest, appErr.Code)
}

func TestAnswerAndEndScoring(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 4)

	eng := session.New(st)
	items, err := eng.Start(session.Options{QuestionCount: 4, Type: models.Test})
	require.NoError(t, err)

	// Two right, one wrong, one skipped.
	require.NoError(t, eng.Answer(items[0].DisplayID, "A"))
	require.NoError(t, eng.Answer(items[1].DisplayID, " a. "))
	require.NoError(t, eng.Answer(items[2].DisplayID, "B"))

	answered, total := eng.Progress()
	assert.Equal(t, 3, answered)
	assert.Equal(t, 4, total)

	result, err := eng.End()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 50, result.Accuracy)
	require.NotNil(t, result.Session.EndedAt)
	assert.Equal(t, models.Test, result.Session.SessionType)

	// Every slot produced an attempt, the skip included.
	_, _, attempts, _ := st.Counts()
	assert.Equal(t, 4, attempts)
	assert.False(t, eng.Active())

	// A session ends exactly once.
	_, err = eng.End()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeBadRequest, appErr.Code)
}

func TestAnswerOverwriteKeepsLast(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 1)

	eng := session.New(st)
	items, err := eng.Start(session.Options{QuestionCount: 1})
	require.NoError(t, err)

	require.NoError(t, eng.Answer(items[0].DisplayID, "B"))
	require.NoError(t, eng.Answer(items[0].DisplayID, "A"))

	result, err := eng.End()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
}

func TestAnswerUnknownSlot(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 1)

	eng := session.New(st)
	require.Error(t, eng.Answer(1, "A"), "no session open yet")

	_, err := eng.Start(session.Options{QuestionCount: 1})
	require.NoError(t, err)

	err = eng.Answer(42, "A")
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeNotFound, appErr.Code)
}

func TestStartDiscardsOpenSession(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 2)

	eng := session.New(st)
	first, err := eng.Start(session.Options{QuestionCount: 2})
	require.NoError(t, err)
	require.NoError(t, eng.Answer(first[0].DisplayID, "A"))

	_, err = eng.Start(session.Options{QuestionCount: 2})
	require.NoError(t, err)

	// The discarded session recorded no attempts and never ended.
	_, _, attempts, _ := st.Counts()
	assert.Zero(t, attempts)

	result, err := eng.End()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestConcurrentAnswersAreSerialized(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)
	seedCards(t, st, "Geography", 8)

	eng := session.New(st)
	items, err := eng.Start(session.Options{QuestionCount: 8})
	require.NoError(t, err)

	// Handlers share one engine across request goroutines; answering
	// every slot in parallel must not corrupt its state.
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, eng.Answer(id, "A"))
		}(item.DisplayID)
	}
	wg.Wait()

	answered, total := eng.Progress()
	assert.Equal(t, 8, answered)
	assert.Equal(t, 8, total)

	result, err := eng.End()
	require.NoError(t, err)
	assert.Equal(t, 8, result.Correct)
}

func TestIsCorrectMultipleChoice(t *testing.T) {
	card := testutil.ChoiceCard("Geography")

	assert.True(t, session.IsCorrect(card, "A"))
	assert.True(t, session.IsCorrect(card, "a"))
	assert.True(t, session.IsCorrect(card, " A. "))
	assert.False(t, session.IsCorrect(card, "B"))
	assert.False(t, session.IsCorrect(card, ""))
	assert.False(t, session.IsCorrect(card, "   "))
}

func TestIsCorrectFillInBlankSynonyms(t *testing.T) {
	card := testutil.BlankCard("Geography") // answers "Paris, paris, PARIS"

	assert.True(t, session.IsCorrect(card, "Paris"))
	assert.True(t, session.IsCorrect(card, " paris "))
	assert.True(t, session.IsCorrect(card, "PARIS."))
	assert.True(t, session.IsCorrect(card, "paris!"))
	assert.False(t, session.IsCorrect(card, "parisian"))
	assert.False(t, session.IsCorrect(card, ""))
}

func TestIsCorrectLegacyCardDefaultsToChoice(t *testing.T) {
	// Records that predate the type field behave as multiple choice.
	card := models.Card{Question: "Q", CorrectAnswer: "C"}
	assert.True(t, session.IsCorrect(card, "c"))
	assert.False(t, session.IsCorrect(card, "a"))
}
