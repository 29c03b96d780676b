package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/cards", func(r chi.Router) {
		r.Get("/", s.handleListCards)
		r.Post("/", s.handleCreateCard)
		r.Post("/bulk", s.handleCreateCards)
		r.Get("/due", s.handleDueCards)
		r.Get("/subjects", s.handleSubjects)
		r.Get("/{id}", s.handleGetCard)
		r.Put("/{id}", s.handleUpdateCard)
		r.Delete("/{id}", s.handleDeleteCard)
	})

	r.Route("/study", func(r chi.Router) {
		r.Post("/start", s.handleStartStudy)
		r.Post("/answer", s.handleAnswerStudy)
		r.Post("/end", s.handleEndStudy)
		r.Get("/progress", s.handleStudyProgress)
	})

	r.Get("/stats/subjects", s.handleSubjectStats)
	r.Get("/stats/daily", s.handleDailyStats)

	r.Get("/integrity", s.handleIntegrity)
	r.Post("/integrity/cleanup", s.handleIntegrityCleanup)

	r.Get("/export", s.handleExport)
	r.Post("/import", s.handleImport)
	r.Post("/migrate", s.handleMigrate)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
