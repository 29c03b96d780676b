// Package validate holds the record validator: pure predicates that gate
// records before they enter the store. Invalid records are dropped at
// import time and reported by the integrity auditor; they are never
// stored half-valid.
package validate

import "github.com/testdeck/testdeck/internal/models"

// Card reports whether c is structurally complete for its kind.
// Every card needs a question, a subject and a difficulty; fill-in-blank
// cards additionally need a blank answer, multiple-choice cards need
// options A through D and a correct letter.
func Card(c models.Card) bool {
	if c.Question == "" || c.Subject == "" || c.Difficulty == 0 {
		return false
	}
	if c.Kind() == models.FillInBlank {
		return c.BlankAnswer != ""
	}
	return c.OptionA != "" && c.OptionB != "" && c.OptionC != "" && c.OptionD != "" && c.CorrectAnswer != ""
}

// Session reports whether s is structurally complete.
func Session(s models.StudySession) bool {
	if s.StartedAt.IsZero() || s.TotalQuestions < 0 {
		return false
	}
	return s.SessionType == models.Practice || s.SessionType == models.Test
}

// Attempt reports whether a is structurally complete. Attempts reference
// their card weakly, so a missing card is an orphan, not invalidity.
func Attempt(a models.Attempt) bool {
	return a.CardID != 0 && a.SessionID != 0 && !a.AttemptedAt.IsZero()
}
