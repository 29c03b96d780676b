package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/storage"
	"github.com/testdeck/testdeck/internal/store"
)

// NewTestStore creates a loaded store over an in-memory namespace with
// a long debounce window so tests control when saves happen via Flush.
func NewTestStore(t *testing.T) (*store.Store, *storage.Memory) {
	t.Helper()
	ns := storage.NewMemory(0)
	st := store.New(ns, store.Options{AutosaveDelay: time.Hour})
	require.NoError(t, st.Load())
	return st, ns
}

// ChoiceCard returns a valid multiple-choice card for the given subject.
func ChoiceCard(subject string) models.Card {
	return models.Card{
		Question:      "Capital of France?",
		QuestionType:  models.MultipleChoice,
		OptionA:       "Paris",
		OptionB:       "Lyon",
		OptionC:       "Nice",
		OptionD:       "Lille",
		CorrectAnswer: "A",
		Subject:       subject,
		Difficulty:    1,
	}
}

// BlankCard returns a valid fill-in-blank card for the given subject.
func BlankCard(subject string) models.Card {
	return models.Card{
		Question:     "The capital of France is ___.",
		QuestionType: models.FillInBlank,
		BlankAnswer:  "Paris, paris, PARIS",
		Subject:      subject,
		Difficulty:   2,
	}
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	t.Helper()
	require.NoError(t, closer.Close())
}
