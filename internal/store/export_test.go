package store_test

import (
	"encoding/json"
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

func TestExportRequiresCards(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	_, err := st.ExportData()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeBadRequest, appErr.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, src)

	cardID, err := src.CreateCard(testutil.ChoiceCard("Geography"))
	require.NoError(t, err)
	_, err = src.CreateCard(testutil.BlankCard("History"))
	require.NoError(t, err)
	sessID, err := src.CreateSession(models.StudySession{TotalQuestions: 1, SessionType: models.Practice})
	require.NoError(t, err)
	_, err = src.RecordAttempt(models.Attempt{CardID: cardID, SessionID: sessID, UserAnswer: "A", IsCorrect: true})
	require.NoError(t, err)

	raw, err := src.ExportData()
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Contains(t, payload, "exportDate")
	assert.Contains(t, payload, "version")

	dst, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, dst)

	added, err := dst.ImportData(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	cards, sessions, attempts, stats := dst.Counts()
	assert.Equal(t, 2, cards)
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, stats)

	// Importing the same file again adds nothing new.
	added, err = dst.ImportData(raw)
	require.NoError(t, err)
	assert.Zero(t, added)
	cards, _, _, _ = dst.Counts()
	assert.Equal(t, 2, cards)
}

func TestImportRejectsBadPayloads(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	_, err := st.ImportData([]byte("not json"))
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)

	_, err = st.ImportData([]byte(`{"sessions":[]}`))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)

	// A cards array with only invalid entries is as useless as none.
	_, err = st.ImportData([]byte(`{"cards":[{"question":"no answers"}]}`))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
}

func TestImportSeedsIDsAboveImported(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	card := testutil.ChoiceCard("Geography")
	card.ID = 500
	raw, err := json.Marshal(map[string]any{"cards": []models.Card{card}})
	require.NoError(t, err)

	added, err := st.ImportData(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	newID, err := st.CreateCard(testutil.ChoiceCard("History"))
	require.NoError(t, err)
	assert.Greater(t, newID, int64(500))
}

func TestExportFileNameIsDated(t *testing.T) {
	ns := storage.NewMemory(0)
	fixed := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	st := store.New(ns, store.Options{
		AutosaveDelay: time.Hour,
		Now:           func() time.Time { return fixed },
	})
	require.NoError(t, st.Load())
	defer testutil.MustClose(t, st)

	assert.Equal(t, "testdeck-backup-2026-08-31.json", st.ExportFileName())
}
