package store

import (
	"sort"
	"time"

	"github.com/testdeck/testdeck/internal/mathutil"
	"github.com/testdeck/testdeck/internal/models"
)

// SubjectStats aggregates per-subject accuracy from the attempts table.
// The stats table is consulted only for subjects with no attempt rows,
// which can happen for data imported from older snapshots.
func (s *Store) SubjectStats() []models.SubjectStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjectByCard := make(map[int64]string, len(s.cards))
	bySubject := make(map[string]*models.SubjectStats)
	var order []string

	for _, c := range s.cards {
		subjectByCard[c.ID] = c.Subject
		agg, ok := bySubject[c.Subject]
		if !ok {
			agg = &models.SubjectStats{Name: c.Subject}
			bySubject[c.Subject] = agg
			order = append(order, c.Subject)
		}
		agg.TotalCards++
	}

	for _, a := range s.attempts {
		subject, ok := subjectByCard[a.CardID]
		if !ok {
			continue // orphaned attempts contribute nothing
		}
		agg := bySubject[subject]
		agg.TotalAttempts++
		if a.IsCorrect {
			agg.CorrectAttempts++
		}
		if agg.LastStudied == nil || a.AttemptedAt.After(*agg.LastStudied) {
			t := a.AttemptedAt
			agg.LastStudied = &t
		}
	}

	// Older snapshots may carry stats rows without their attempts.
	for _, st := range s.stats {
		subject, ok := subjectByCard[st.CardID]
		if !ok || st.TotalAttempts == 0 {
			continue
		}
		agg := bySubject[subject]
		if agg.TotalAttempts > 0 {
			continue
		}
		agg.TotalAttempts = st.TotalAttempts
		agg.CorrectAttempts = st.CorrectAttempts
		if st.LastAttempt != nil {
			t := *st.LastAttempt
			agg.LastStudied = &t
		}
	}

	sort.Strings(order)
	out := make([]models.SubjectStats, 0, len(order))
	for _, name := range order {
		agg := bySubject[name]
		agg.Accuracy = mathutil.SafePercentage(agg.CorrectAttempts, agg.TotalAttempts)
		out = append(out, *agg)
	}
	return out
}

// DailyStats returns one row per day for the last days days, oldest
// first, aggregating answers and card creation per calendar day.
func (s *Store) DailyStats(days int) []models.DailyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = 30
	}
	today := s.opt.Now()

	byDate := make(map[string]*models.DailyStats, days)
	var dates []string
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		byDate[date] = &models.DailyStats{Date: date}
		dates = append(dates, date)
	}

	for _, a := range s.attempts {
		row, ok := byDate[a.AttemptedAt.Format("2006-01-02")]
		if !ok {
			continue
		}
		row.QuestionsAnswered++
		if a.IsCorrect {
			row.CorrectAnswers++
		}
		timeSpent := a.TimeSpent
		if timeSpent == 0 {
			timeSpent = 30 // legacy attempts recorded no timing
		}
		row.StudyTime += float64(timeSpent) / 60
	}

	for _, c := range s.cards {
		if row, ok := byDate[c.CreatedAt.Format("2006-01-02")]; ok {
			row.CardsCreated++
		}
	}

	out := make([]models.DailyStats, 0, len(dates))
	for _, date := range dates {
		row := byDate[date]
		row.Accuracy = mathutil.SafePercentage(row.CorrectAnswers, row.QuestionsAnswered)
		if row.StudyTime > 0 {
			row.StudyTime = mathutil.SafeRound(row.StudyTime, 1)
		}
		out = append(out, *row)
	}
	return out
}

// LastBackupAt reports when the backup slot was last refreshed.
func (s *Store) LastBackupAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBackupAt
}
