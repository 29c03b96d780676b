// Package sm2 implements the SM-2 spaced-repetition scheduler used to
// plan card reviews.
package sm2

import (
	"math"
	"sort"
	"time"

	"github.com/testdeck/testdeck/internal/models"
)

// MinEase is the floor for the ease factor. SM-2 never lets a card's
// ease drop below it, no matter how many reviews fail.
const MinEase = 1.3

// State is a card's current scheduling state.
type State struct {
	Repetitions  int
	EaseFactor   float64
	IntervalDays int
}

// DefaultState is the scheduling state for a card that has never been
// reviewed.
func DefaultState() State {
	return State{Repetitions: 0, EaseFactor: 2.5, IntervalDays: 1}
}

// Review applies the simplified boolean path: a correct answer nudges
// the ease up by a fixed 0.1, an incorrect one resets the repetition
// ladder and drops the ease by 0.2. The interval follows the SM-2
// ladder: 1 day, then 6 days, then interval * ease.
func Review(s State, correct bool) State {
	if !correct {
		return State{
			Repetitions:  0,
			IntervalDays: 1,
			EaseFactor:   math.Max(MinEase, s.EaseFactor-0.2),
		}
	}

	next := s
	next.Repetitions++
	switch next.Repetitions {
	case 1:
		next.IntervalDays = 1
	case 2:
		next.IntervalDays = 6
	default:
		next.IntervalDays = int(math.Round(float64(s.IntervalDays) * s.EaseFactor))
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	next.EaseFactor = math.Max(MinEase, s.EaseFactor+0.1)
	return next
}

// ReviewQuality applies the canonical SM-2 formula for a 0-5 quality
// score. Quality below 3 counts as a failure and resets the ladder,
// exactly like the boolean path's incorrect branch.
func ReviewQuality(s State, quality int) State {
	if quality < 0 {
		quality = 0
	}
	if quality > 5 {
		quality = 5
	}

	next := s
	if quality < 3 {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(s.IntervalDays) * s.EaseFactor))
		}
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
	}

	q := float64(5 - quality)
	next.EaseFactor = math.Max(MinEase, s.EaseFactor+(0.1-q*(0.08+q*0.02)))
	return next
}

// QualityForAnswer maps a boolean answer plus time spent (seconds) onto
// the 0-5 quality scale used by ReviewQuality. Wrong answers are 0;
// correct answers grade down from 5 as response time grows.
func QualityForAnswer(correct bool, timeSpent int) int {
	if !correct {
		return 0
	}
	switch {
	case timeSpent <= 0:
		return 4
	case timeSpent <= 10:
		return 5
	case timeSpent <= 30:
		return 4
	default:
		return 3
	}
}

// NextReview returns the due date for a card reviewed at now with the
// given interval.
func NextReview(now time.Time, intervalDays int) time.Time {
	return now.Add(time.Duration(intervalDays) * 24 * time.Hour)
}

// Due reports whether a card with the given next-review date is due.
func Due(nextReview, now time.Time) bool {
	return !nextReview.After(now)
}

// SortByPriority orders stats for study: due cards before cards not yet
// due, and within each group the earlier next_review first. Oldest
// overdue cards come first, then the soonest-upcoming.
func SortByPriority(stats []models.CardStats, now time.Time) {
	sort.SliceStable(stats, func(i, j int) bool {
		di, dj := Due(stats[i].NextReview, now), Due(stats[j].NextReview, now)
		if di != dj {
			return di
		}
		return stats[i].NextReview.Before(stats[j].NextReview)
	})
}
