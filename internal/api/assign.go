package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	visitorID := r.URL.Query().Get("visitor_id")
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("visitor_id is required"))
		return
	}

	experimentID, err := uuid.Parse(r.URL.Query().Get("experiment_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid experiment_id: %w", err))
		return
	}

	result, err := s.assignments.Assign(r.Context(), visitorID, experimentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
