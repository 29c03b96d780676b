package models

import "time"

// CardStats holds per-card spaced-repetition scheduling state. One row per
// card, created lazily on the first attempt and updated by the scheduler
// after every attempt.
type CardStats struct {
	ID              int64      `json:"id"`
	CardID          int64      `json:"card_id"`
	TotalAttempts   int        `json:"total_attempts"`
	CorrectAttempts int        `json:"correct_attempts"`
	LastAttempt     *time.Time `json:"last_attempt,omitempty"`
	NextReview      time.Time  `json:"next_review"`
	EaseFactor      float64    `json:"ease_factor"`
	IntervalDays    int        `json:"interval_days"`
	Repetitions     int        `json:"repetitions"`
}

type SubjectStats struct {
	Name            string     `json:"name"`
	TotalCards      int        `json:"total_cards"`
	Accuracy        int        `json:"accuracy"`
	LastStudied     *time.Time `json:"last_studied,omitempty"`
	TotalAttempts   int        `json:"total_attempts"`
	CorrectAttempts int        `json:"correct_attempts"`
}

type DailyStats struct {
	Date              string  `json:"date"`
	QuestionsAnswered int     `json:"questions_answered"`
	CorrectAnswers    int     `json:"correct_answers"`
	Accuracy          int     `json:"accuracy"`
	StudyTime         float64 `json:"study_time"`
	CardsCreated      int     `json:"cards_created"`
}
