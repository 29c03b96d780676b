package store

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/validate"
)

// exportPayload is the snapshot shape plus an export timestamp. The
// file a user downloads round-trips through ImportData.
type exportPayload struct {
	snapshot
	ExportDate time.Time `json:"exportDate"`
}

// ExportData serializes the full table state as indented JSON for a
// user-facing backup file.
func (s *Store) ExportData() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cards) == 0 {
		return nil, apperrors.NewBadRequestError("no cards to export")
	}

	now := s.opt.Now()
	payload := exportPayload{
		snapshot: snapshot{
			Cards:     s.cards,
			Sessions:  s.sessions,
			Attempts:  s.attempts,
			Stats:     s.stats,
			LastSaved: now,
			Version:   FormatVersion,
		},
		ExportDate: now,
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.log.Info("exported %d cards, %d sessions, %d attempts", len(s.cards), len(s.sessions), len(s.attempts))
	return raw, nil
}

// ExportFileName suggests a dated name for the backup download.
func (s *Store) ExportFileName() string {
	return fmt.Sprintf("testdeck-backup-%s.json", s.opt.Now().Format("2006-01-02"))
}

// ImportData merges a backup file into the store: cards are filtered
// through the record validator and deduplicated by id, history tables
// are appended when present. Returns the number of new cards.
func (s *Store) ImportData(raw []byte) (int, error) {
	var backup struct {
		Cards    []models.Card         `json:"cards"`
		Sessions []models.StudySession `json:"sessions"`
		Attempts []models.Attempt      `json:"attempts"`
		Stats    []models.CardStats    `json:"stats"`
	}
	if err := json.Unmarshal(raw, &backup); err != nil {
		return 0, apperrors.NewValidationError("backup", "not a valid backup file")
	}
	if backup.Cards == nil {
		return 0, apperrors.NewValidationError("backup", "backup file has no cards array")
	}

	var valid []models.Card
	for _, c := range backup.Cards {
		if validate.Card(c) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return 0, apperrors.NewValidationError("backup", "no valid cards found in backup")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.cardIDSet()
	added := 0
	for _, c := range valid {
		if existing[c.ID] {
			continue
		}
		if c.ID == 0 {
			c.ID = s.genID()
		} else if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
		s.cards = append(s.cards, c)
		existing[c.ID] = true
		added++
	}

	s.sessions = append(s.sessions, backup.Sessions...)
	s.attempts = append(s.attempts, backup.Attempts...)
	s.stats = append(s.stats, backup.Stats...)
	for _, sess := range backup.Sessions {
		if sess.ID >= s.nextID {
			s.nextID = sess.ID + 1
		}
	}
	for _, a := range backup.Attempts {
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	for _, st := range backup.Stats {
		if st.ID >= s.nextID {
			s.nextID = st.ID + 1
		}
	}

	s.scheduleSave()
	s.log.Info("imported %d new cards (%d in file, %d valid)", added, len(backup.Cards), len(valid))
	return added, nil
}
