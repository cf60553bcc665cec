package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	experimentID, err := parseOptionalExperimentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := s.metrics.Stats(r.Context(), experimentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	experimentID, err := parseOptionalExperimentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	workbook, err := s.metrics.ExportStats(r.Context(), experimentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("splitlab-stats-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(w); err != nil {
		log.Printf("[API] failed to stream stats export: %v", err)
	}
}

func parseOptionalExperimentID(r *http.Request) (*uuid.UUID, error) {
	raw := r.URL.Query().Get("experiment_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid experiment_id: %w", err)
	}
	return &id, nil
}
