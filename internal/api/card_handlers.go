package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/logger"
	"github.com/testdeck/testdeck/internal/models"
)

// cardRequest is the wire shape for creating and updating cards. The
// structural tags catch malformed payloads at the boundary; the kind
// specific field rules live in the record validator.
type cardRequest struct {
	Question      string `json:"question" validate:"required"`
	QuestionType  string `json:"question_type" validate:"omitempty,oneof=multiple_choice fill_in_blank"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	OptionE       string `json:"option_e"`
	CorrectAnswer string `json:"correct_answer"`
	BlankAnswer   string `json:"blank_answer"`
	Hints         string `json:"hints"`
	Subject       string `json:"subject" validate:"required"`
	Difficulty    int    `json:"difficulty" validate:"required,min=1,max=3"`
	ImagePath     string `json:"image_path"`
}

func (cr cardRequest) toModel() models.Card {
	return models.Card{
		Question:      cr.Question,
		QuestionType:  models.QuestionType(cr.QuestionType),
		OptionA:       cr.OptionA,
		OptionB:       cr.OptionB,
		OptionC:       cr.OptionC,
		OptionD:       cr.OptionD,
		OptionE:       cr.OptionE,
		CorrectAnswer: cr.CorrectAnswer,
		BlankAnswer:   cr.BlankAnswer,
		Hints:         cr.Hints,
		Subject:       cr.Subject,
		Difficulty:    cr.Difficulty,
		ImagePath:     cr.ImagePath,
	}
}

func cardIDParam(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequestError("invalid card ID")
	}
	return id, nil
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	if subject := r.URL.Query().Get("subject"); subject != "" {
		respondJSON(w, http.StatusOK, s.Store.GetCardsBySubject(subject))
		return
	}
	respondJSON(w, http.StatusOK, s.Store.GetAllCards())
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.Store.GetCard(id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	id, err := s.Store.CreateCard(req.toModel())
	if err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.Store.GetCard(id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

func (s *Server) handleCreateCards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cards []cardRequest `json:"cards" validate:"required,min=1,dive"`
	}
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	cards := make([]models.Card, 0, len(req.Cards))
	for _, cr := range req.Cards {
		cards = append(cards, cr.toModel())
	}
	ids := s.Store.CreateCards(cards)

	logger.FromContext(r.Context()).Info("bulk create: %d of %d cards accepted", len(ids), len(cards))
	respondJSON(w, http.StatusCreated, map[string]any{
		"created": len(ids),
		"ids":     ids,
	})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req cardRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	card := req.toModel()
	card.ID = id
	if err := s.Store.UpdateCard(card); err != nil {
		handleError(w, r, err)
		return
	}
	updated, err := s.Store.GetCard(id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Store.DeleteCard(id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Store.DueCards())
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Store.Subjects())
}
