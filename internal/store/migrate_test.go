package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/store"
	"github.com/testdeck/testdeck/internal/testutil"
)

const legacyBlob = `{"cards":[
	{"question":"Capital of France?","option_a":"Paris","option_b":"Lyon","option_c":"Nice","option_d":"Lille","correct_answer":"A"},
	{"question":"The capital of Italy is ___.","question_type":"fill_in_blank","blank_answer":"Rome","subject":"Geography","difficulty":2},
	{"question":"No answers at all"}
]}`

func TestMigrateLegacyConvertsAndRetires(t *testing.T) {
	st, ns := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	require.NoError(t, ns.Set(store.LegacyKey, legacyBlob))

	migrated, err := st.MigrateLegacy()
	require.NoError(t, err)
	assert.Equal(t, 2, migrated, "the card with no answers is skipped")

	cards := st.GetAllCards()
	require.Len(t, cards, 2)

	// The legacy shape allowed subject, difficulty and type to be
	// absent; conversion fills the defaults.
	var choice models.Card
	for _, c := range cards {
		if c.Kind() == models.MultipleChoice {
			choice = c
		}
	}
	assert.Equal(t, "General", choice.Subject)
	assert.Equal(t, 1, choice.Difficulty)

	// The source blob moved to the snapshot key and cannot be
	// migrated again.
	_, ok, err := ns.Get(store.LegacyKey)
	require.NoError(t, err)
	assert.False(t, ok)
	snap, ok, err := ns.Get(store.LegacyBackupKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, legacyBlob, snap)

	migrated, err = st.MigrateLegacy()
	require.NoError(t, err)
	assert.Zero(t, migrated)
}

func TestMigrateLegacyAbsentIsNoop(t *testing.T) {
	st, _ := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	migrated, err := st.MigrateLegacy()
	require.NoError(t, err)
	assert.Zero(t, migrated)
}

func TestMigrateLegacyCorruptBlobStaysPut(t *testing.T) {
	st, ns := testutil.NewTestStore(t)
	defer testutil.MustClose(t, st)

	require.NoError(t, ns.Set(store.LegacyKey, "{{{ not json"))

	_, err := st.MigrateLegacy()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeCorruptStore, appErr.Code)

	raw, ok, err := ns.Get(store.LegacyKey)
	require.NoError(t, err)
	require.True(t, ok, "a failed migration leaves the legacy blob in place")
	assert.Equal(t, "{{{ not json", raw)

	cards, _, _, _ := st.Counts()
	assert.Zero(t, cards)
}

func TestMigrateLegacySnapshotFailureRollsBack(t *testing.T) {
	st, ns := testutil.NewTestStore(t)
	defer func() { _ = st.Close() }()

	require.NoError(t, ns.Set(store.LegacyKey, legacyBlob))
	ns.FailWrites(true)

	_, err := st.MigrateLegacy()
	require.Error(t, err)

	cards, _, _, _ := st.Counts()
	assert.Zero(t, cards, "converted cards are rolled back when the snapshot write fails")

	raw, ok, getErr := ns.Get(store.LegacyKey)
	require.NoError(t, getErr)
	require.True(t, ok)
	assert.Equal(t, legacyBlob, raw)
}
