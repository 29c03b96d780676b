package api

import (
	"net/http"

	"github.com/testdeck/testdeck/internal/logger"
	"github.com/testdeck/testdeck/internal/models"
	"github.com/testdeck/testdeck/internal/session"
)

type startStudyRequest struct {
	Subject       string `json:"subject"`
	Difficulties  []int  `json:"difficulties" validate:"omitempty,dive,min=1,max=3"`
	QuestionCount int    `json:"question_count" validate:"required,min=1"`
	SessionType   string `json:"session_type" validate:"omitempty,oneof=practice test"`
}

func (s *Server) handleStartStudy(w http.ResponseWriter, r *http.Request) {
	var req startStudyRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	items, err := s.Engine.Start(session.Options{
		Subject:       req.Subject,
		Difficulties:  req.Difficulties,
		QuestionCount: req.QuestionCount,
		Type:          models.SessionType(req.SessionType),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"items": items,
		"total": len(items),
	})
}

type answerStudyRequest struct {
	DisplayID int64  `json:"display_id" validate:"required,min=1"`
	Answer    string `json:"answer"`
}

func (s *Server) handleAnswerStudy(w http.ResponseWriter, r *http.Request) {
	var req answerStudyRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Engine.Answer(req.DisplayID, req.Answer); err != nil {
		handleError(w, r, err)
		return
	}
	answered, total := s.Engine.Progress()
	respondJSON(w, http.StatusOK, map[string]any{
		"answered": answered,
		"total":    total,
	})
}

func (s *Server) handleEndStudy(w http.ResponseWriter, r *http.Request) {
	result, err := s.Engine.End()
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("study session ended: %d/%d correct", result.Correct, result.Total)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStudyProgress(w http.ResponseWriter, r *http.Request) {
	answered, total := s.Engine.Progress()
	respondJSON(w, http.StatusOK, map[string]any{
		"active":   s.Engine.Active(),
		"answered": answered,
		"total":    total,
	})
}
