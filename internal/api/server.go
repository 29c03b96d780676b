// Package api exposes the store and the session engine over HTTP. All
// endpoints speak JSON; errors leave as an AppError envelope with the
// matching status code.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/session"
	"github.com/testdeck/testdeck/internal/store"
)

type Server struct {
	Store    *store.Store
	Engine   *session.Engine
	validate *validator.Validate
}

func NewServer(st *store.Store, eng *session.Engine) *Server {
	return &Server{
		Store:    st,
		Engine:   eng,
		validate: validator.New(),
	}
}

// decode reads a JSON body into dst and runs its validation tags.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewBadRequestError("invalid JSON body")
	}
	if err := s.validate.Struct(dst); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return apperrors.NewValidationError(verrs[0].Field(), "failed "+verrs[0].Tag()+" validation")
		}
		return apperrors.NewBadRequestError("invalid request payload")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
