package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleSubjectStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Store.SubjectStats())
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	respondJSON(w, http.StatusOK, s.Store.DailyStats(days))
}
