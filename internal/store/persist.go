package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/storage"
)

// FormatVersion is stamped into every persisted snapshot.
const FormatVersion = "1.0"

// snapshot is the serialized shape of the store, shared by the primary
// and backup slots.
type snapshot struct {
	Cards      []models.Card         `json:"cards"`
	Sessions   []models.StudySession `json:"sessions"`
	Attempts   []models.Attempt      `json:"attempts"`
	Stats      []models.CardStats    `json:"stats"`
	LastBackup *time.Time            `json:"lastBackup,omitempty"`
	LastSaved  time.Time             `json:"lastSaved"`
	Version    string                `json:"version"`
}

// parseSnapshot decodes raw and applies the adoption shape check: the
// payload must be a JSON object whose cards field is an array.
func parseSnapshot(raw string) (snapshot, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return snapshot{}, err
	}
	cards, ok := probe["cards"]
	if !ok {
		return snapshot{}, fmt.Errorf("snapshot has no cards field")
	}
	if trimmed := strings.TrimSpace(string(cards)); !strings.HasPrefix(trimmed, "[") {
		return snapshot{}, fmt.Errorf("snapshot cards field is not an array")
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// Load populates the tables from the namespace. The order is fixed:
// primary slot, then backup slot (re-persisting it to primary), then
// empty tables for a first run. No step deletes data on failure.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.loadSlot(PrimaryKey); ok {
		s.adopt(snap)
		s.log.Info("loaded %d cards, %d sessions, %d attempts, %d stats from primary slot",
			len(s.cards), len(s.sessions), len(s.attempts), len(s.stats))
		return nil
	}

	s.log.Warn("primary slot unusable, trying backup")
	if snap, ok := s.loadSlot(BackupKey); ok {
		s.adopt(snap)
		s.log.Info("recovered %d cards from backup slot", len(s.cards))
		// Self-heal: re-persist the recovered state to the primary slot.
		if err := s.save(); err != nil {
			s.log.Warn("failed to re-persist recovered backup to primary: %v", err)
		} else {
			s.log.Info("primary slot restored from backup")
		}
		return nil
	}

	s.log.Info("no usable slot found, starting with empty tables")
	s.adopt(snapshot{})
	return nil
}

// loadSlot reads and parses one slot. A missing or corrupt slot is
// reported as unusable but never deleted.
func (s *Store) loadSlot(key string) (snapshot, bool) {
	raw, ok, err := s.ns.Get(key)
	if err != nil {
		s.log.Error("failed to read slot %s: %v", key, err)
		return snapshot{}, false
	}
	if !ok {
		s.log.Debug("slot %s is empty", key)
		return snapshot{}, false
	}
	snap, err := parseSnapshot(raw)
	if err != nil {
		s.log.Error("slot %s is corrupt: %v", key, err)
		return snapshot{}, false
	}
	return snap, true
}

// adopt installs a snapshot as the table state and reseeds the id
// generator above every id present.
func (s *Store) adopt(snap snapshot) {
	s.cards = snap.Cards
	s.sessions = snap.Sessions
	s.attempts = snap.Attempts
	s.stats = snap.Stats
	if snap.LastBackup != nil {
		s.lastBackupAt = *snap.LastBackup
	}

	maxID := int64(0)
	for _, c := range s.cards {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	for _, sess := range s.sessions {
		if sess.ID > maxID {
			maxID = sess.ID
		}
	}
	for _, a := range s.attempts {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	for _, st := range s.stats {
		if st.ID > maxID {
			maxID = st.ID
		}
	}
	s.nextID = maxID + 1
}

// Save persists the current table state immediately.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save runs the quota-aware pipeline. Callers must hold the mutex.
//
// Serialize, prune when over the soft limit, write primary; on a quota
// failure run the emergency cleanup and retry with a degraded payload;
// refresh the backup slot when due. A failed backup write never aborts
// the primary result, and no failure here touches the in-memory tables.
func (s *Store) save() error {
	now := s.opt.Now()
	payload, err := s.serialize(now)
	if err != nil {
		s.log.Error("failed to serialize store: %v", err)
		return apperrors.NewInternalError(err)
	}

	size := int64(len(payload))
	s.log.Debug("saving %d cards, %d sessions, %d attempts, %d stats (%.2f MB)",
		len(s.cards), len(s.sessions), len(s.attempts), len(s.stats), float64(size)/(1<<20))

	if size > s.opt.SoftLimitBytes {
		s.log.Warn("payload over soft limit, pruning old history")
		s.prune(now)
		payload, err = s.serialize(now)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		size = int64(len(payload))
	}

	if err := s.ns.Set(PrimaryKey, payload); err != nil {
		s.log.Error("primary write failed: %v", err)
		if retryErr := s.emergencySave(now); retryErr != nil {
			return retryErr
		}
		// The degraded write went through; skip the backup this round.
		return nil
	}

	s.maybeBackup(now, size, payload)
	return nil
}

// serialize renders the snapshot for the primary and backup slots.
func (s *Store) serialize(now time.Time) (string, error) {
	snap := snapshot{
		Cards:     s.cards,
		Sessions:  s.sessions,
		Attempts:  s.attempts,
		Stats:     s.stats,
		LastSaved: now,
		Version:   FormatVersion,
	}
	if !s.lastBackupAt.IsZero() {
		t := s.lastBackupAt
		snap.LastBackup = &t
	}
	raw, err := json.Marshal(snap)
	return string(raw), err
}

// prune drops sessions and attempts older than the retention window.
// Cards and stats are never pruned by age.
func (s *Store) prune(now time.Time) {
	cutoff := now.AddDate(0, 0, -s.opt.RetentionDays)

	keptSessions := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.StartedAt.After(cutoff) {
			keptSessions = append(keptSessions, sess)
		}
	}
	droppedSessions := len(s.sessions) - len(keptSessions)
	s.sessions = keptSessions

	keptAttempts := s.attempts[:0]
	for _, a := range s.attempts {
		if a.AttemptedAt.After(cutoff) {
			keptAttempts = append(keptAttempts, a)
		}
	}
	droppedAttempts := len(s.attempts) - len(keptAttempts)
	s.attempts = keptAttempts

	s.log.Info("pruned %d sessions and %d attempts older than %d days",
		droppedSessions, droppedAttempts, s.opt.RetentionDays)
}

// emergencySave is the aggressive fallback after a failed primary
// write: clear scratch drafts, evict every foreign key from the
// namespace, then retry with only the cards table. The in-memory
// tables are not touched.
func (s *Store) emergencySave(now time.Time) error {
	s.log.Warn("starting emergency cleanup")

	for _, key := range scratchKeys {
		if err := s.ns.Delete(key); err != nil {
			s.log.Warn("failed to delete scratch key %s: %v", key, err)
		}
	}

	keys, err := s.ns.Keys()
	if err != nil {
		s.log.Warn("failed to list namespace keys: %v", err)
	} else {
		evicted := 0
		for _, key := range keys {
			if strings.HasPrefix(key, "testdeck-") {
				continue
			}
			if err := s.ns.Delete(key); err != nil {
				s.log.Warn("failed to evict key %s: %v", key, err)
				continue
			}
			evicted++
		}
		if evicted > 0 {
			s.log.Info("evicted %d unrelated keys from namespace", evicted)
		}
	}

	essential := snapshot{
		Cards:     s.cards,
		LastSaved: now,
		Version:   FormatVersion,
	}
	raw, err := json.Marshal(essential)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.ns.Set(PrimaryKey, string(raw)); err != nil {
		s.log.Error("emergency save failed, storage is full: %v", err)
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return apperrors.NewQuotaExceededError(err)
		}
		return apperrors.NewInternalError(err)
	}

	s.log.Warn("emergency save succeeded with cards only; session history was not persisted")
	return nil
}

// maybeBackup refreshes the backup slot when the interval has elapsed
// and the payload is comfortably under the backup ceiling.
func (s *Store) maybeBackup(now time.Time, size int64, payload string) {
	if now.Sub(s.lastBackupAt) <= s.opt.BackupInterval || size >= s.opt.BackupLimitBytes {
		return
	}
	if err := s.ns.Set(BackupKey, payload); err != nil {
		s.log.Warn("backup write failed, primary data is intact: %v", err)
		return
	}
	s.lastBackupAt = now
	s.log.Debug("backup slot refreshed")
}
