package api

import (
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/testdeck/testdeck/internal/errors"
	"github.com/testdeck/testdeck/internal/logger"
)

// maxImportBytes bounds uploaded backup files. The backup ceiling is
// 3MB, so anything past 8MB cannot be a backup this app wrote.
const maxImportBytes = 8 << 20

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Store.CheckIntegrity())
}

func (s *Server) handleIntegrityCleanup(w http.ResponseWriter, r *http.Request) {
	removed := s.Store.Cleanup()
	logger.FromContext(r.Context()).Info("integrity cleanup removed %d records", removed)
	respondJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.Store.ExportData()
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.Store.ExportFileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
	if err != nil {
		handleError(w, r, apperrors.NewBadRequestError("failed to read upload"))
		return
	}
	if len(raw) > maxImportBytes {
		handleError(w, r, apperrors.NewBadRequestError("backup file too large"))
		return
	}

	added, err := s.Store.ImportData(raw)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"imported": added})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	migrated, err := s.Store.MigrateLegacy()
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"migrated": migrated})
}
