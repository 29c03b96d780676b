package store

import (
	"fmt"

	"github.com/testdeck/testdeck/internal/validate"
)

// IntegrityReport summarizes the auditor's findings.
type IntegrityReport struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// CheckIntegrity scans the tables for invalid cards and for stats or
// attempts whose card no longer exists. It reports, never repairs.
func (s *Store) CheckIntegrity() IntegrityReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issues []string

	invalidCards := 0
	for _, c := range s.cards {
		if !validate.Card(c) {
			invalidCards++
		}
	}
	if invalidCards > 0 {
		issues = append(issues, fmt.Sprintf("%d invalid cards found", invalidCards))
	}

	cardIDs := s.cardIDSet()

	orphanedStats := 0
	for _, st := range s.stats {
		if !cardIDs[st.CardID] {
			orphanedStats++
		}
	}
	if orphanedStats > 0 {
		issues = append(issues, fmt.Sprintf("%d orphaned stats found", orphanedStats))
	}

	orphanedAttempts := 0
	for _, a := range s.attempts {
		if !cardIDs[a.CardID] {
			orphanedAttempts++
		}
	}
	if orphanedAttempts > 0 {
		issues = append(issues, fmt.Sprintf("%d orphaned attempts found", orphanedAttempts))
	}

	report := IntegrityReport{IsValid: len(issues) == 0, Issues: issues}
	s.log.Debug("integrity check: valid=%v issues=%d", report.IsValid, len(report.Issues))
	return report
}

// Cleanup removes orphaned stats and attempts. Cards are never removed.
// A save is triggered only when something was removed, so running
// cleanup twice in a row removes zero records the second time.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cardIDs := s.cardIDSet()

	keptStats := s.stats[:0]
	for _, st := range s.stats {
		if cardIDs[st.CardID] {
			keptStats = append(keptStats, st)
		}
	}
	removedStats := len(s.stats) - len(keptStats)
	s.stats = keptStats

	keptAttempts := s.attempts[:0]
	for _, a := range s.attempts {
		if cardIDs[a.CardID] {
			keptAttempts = append(keptAttempts, a)
		}
	}
	removedAttempts := len(s.attempts) - len(keptAttempts)
	s.attempts = keptAttempts

	removed := removedStats + removedAttempts
	if removed > 0 {
		s.scheduleSave()
		s.log.Info("cleaned up %d orphaned records (%d stats, %d attempts)",
			removed, removedStats, removedAttempts)
	}
	return removed
}

func (s *Store) cardIDSet() map[int64]bool {
	ids := make(map[int64]bool, len(s.cards))
	for _, c := range s.cards {
		ids[c.ID] = true
	}
	return ids
}
