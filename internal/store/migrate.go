package store

import (
	"encoding/json"

	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/validate"
)

// legacyCard is the pre-structured card shape: every field optional,
// kind implied by which fields happen to be present.
type legacyCard struct {
	ID            int64  `json:"id"`
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	OptionE       string `json:"option_e"`
	CorrectAnswer string `json:"correct_answer"`
	BlankAnswer   string `json:"blank_answer"`
	QuestionType  string `json:"question_type"`
	Hints         string `json:"hints"`
	Subject       string `json:"subject"`
	Difficulty    int    `json:"difficulty"`
	ImagePath     string `json:"image_path"`
}

// MigrateLegacy converts records from the legacy slot into the
// structured tables. It runs at most once per store lifetime, gated on
// the legacy blob being present. On success the legacy blob is
// snapshotted under a backup key and the legacy key is removed so the
// migration cannot be double-applied; a failed migration leaves the
// legacy blob untouched. Returns the number of migrated cards.
func (s *Store) MigrateLegacy() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrated {
		s.log.Debug("migration already ran this lifetime, skipping")
		return 0, nil
	}

	raw, ok, err := s.ns.Get(LegacyKey)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	if !ok {
		s.log.Debug("no legacy data to migrate")
		s.migrated = true
		return 0, nil
	}

	var legacy struct {
		Cards []legacyCard `json:"cards"`
	}
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		s.log.Error("legacy blob is unreadable, leaving it in place: %v", err)
		return 0, apperrors.NewCorruptStoreError("legacy slot", err)
	}
	if legacy.Cards == nil {
		s.log.Info("legacy blob has no card data, leaving it in place")
		s.migrated = true
		return 0, nil
	}

	s.log.Info("migrating %d legacy cards", len(legacy.Cards))

	now := s.opt.Now()
	migrated := 0
	for _, lc := range legacy.Cards {
		card := convertLegacyCard(lc)
		if !validate.Card(card) {
			s.log.Warn("skipping invalid legacy card: question=%.40q", lc.Question)
			continue
		}
		card.ID = s.genID()
		card.CreatedAt = now
		card.UpdatedAt = now
		s.cards = append(s.cards, card)
		migrated++
	}

	// Snapshot the legacy blob before removing the source key. If the
	// snapshot cannot be written the migration fails and the source
	// stays in place for a later retry.
	if err := s.ns.Set(LegacyBackupKey, raw); err != nil {
		s.log.Error("failed to snapshot legacy blob, aborting migration: %v", err)
		s.cards = s.cards[:len(s.cards)-migrated]
		return 0, apperrors.NewInternalError(err)
	}
	if err := s.ns.Delete(LegacyKey); err != nil {
		s.log.Warn("failed to remove legacy key after snapshot: %v", err)
	}

	s.migrated = true
	if migrated > 0 {
		s.scheduleSave()
	}
	s.log.Info("migration complete: %d of %d legacy cards converted", migrated, len(legacy.Cards))
	return migrated, nil
}

// convertLegacyCard fills the defaults the legacy shape allowed to be
// absent: a generic subject, the lowest difficulty, multiple choice.
func convertLegacyCard(lc legacyCard) models.Card {
	card := models.Card{
		Question:      lc.Question,
		OptionA:       lc.OptionA,
		OptionB:       lc.OptionB,
		OptionC:       lc.OptionC,
		OptionD:       lc.OptionD,
		OptionE:       lc.OptionE,
		CorrectAnswer: lc.CorrectAnswer,
		BlankAnswer:   lc.BlankAnswer,
		Hints:         lc.Hints,
		Subject:       lc.Subject,
		Difficulty:    lc.Difficulty,
		ImagePath:     lc.ImagePath,
	}
	if card.Subject == "" {
		card.Subject = "General"
	}
	if card.Difficulty == 0 {
		card.Difficulty = 1
	}
	if lc.QuestionType == string(models.FillInBlank) {
		card.QuestionType = models.FillInBlank
	} else {
		card.QuestionType = models.MultipleChoice
	}
	return card
}
