package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/rpattn/splitlab/internal/domain"
	"github.com/rpattn/splitlab/internal/metrics"
)

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req metrics.RecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		created, err := s.metrics.Record(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		filter, limit, offset, err := parseEventQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		events, err := s.metrics.List(r.Context(), filter, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}

func (s *Server) handleEventsBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	var reqs []metrics.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	created, err := s.metrics.RecordBatch(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

func parseEventQuery(r *http.Request) (domain.EventFilter, int, int, error) {
	query := r.URL.Query()

	filter := domain.EventFilter{}
	if variant := query.Get("variant"); variant != "" {
		filter.Variant = &variant
	}
	if eventType := query.Get("event_type"); eventType != "" {
		filter.EventType = &eventType
	}
	if raw := query.Get("experiment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.EventFilter{}, 0, 0, fmt.Errorf("invalid experiment_id: %w", err)
		}
		filter.ExperimentID = &id
	}

	limit := 100
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			return domain.EventFilter{}, 0, 0, fmt.Errorf("limit must be an integer in [1,1000]")
		}
		limit = parsed
	}

	offset := 0
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return domain.EventFilter{}, 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
		offset = parsed
	}

	return filter, limit, offset, nil
}
