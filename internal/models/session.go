package models

import "time"

// SessionType distinguishes untimed practice runs from scored test runs.
type SessionType string

const (
	Practice SessionType = "practice"
	Test     SessionType = "test"
)

type StudySession struct {
	ID             int64       `json:"id"`
	StartedAt      time.Time   `json:"started_at"`
	EndedAt        *time.Time  `json:"ended_at,omitempty"`
	TotalQuestions int         `json:"total_questions"`
	CorrectAnswers int         `json:"correct_answers"`
	SessionType    SessionType `json:"session_type"`
}

// Attempt is one recorded answer to one card within one session. Attempts
// are append-only and reference their card by id; the card may be deleted
// later, leaving the attempt orphaned until the integrity auditor runs.
type Attempt struct {
	ID          int64     `json:"id"`
	CardID      int64     `json:"card_id"`
	SessionID   int64     `json:"session_id"`
	UserAnswer  string    `json:"user_answer"`
	IsCorrect   bool      `json:"is_correct"`
	TimeSpent   int       `json:"time_spent"`
	AttemptedAt time.Time `json:"attempted_at"`
}
