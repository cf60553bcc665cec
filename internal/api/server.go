// Package api maps HTTP routes onto the service operations. Handlers parse
// and validate transport-level input, delegate to the services and translate
// domain errors into status codes.
package api

import (
	"net/http"

	"github.com/rpattn/splitlab/internal/assignment"
	"github.com/rpattn/splitlab/internal/experiments"
	"github.com/rpattn/splitlab/internal/metrics"
	"github.com/rpattn/splitlab/internal/toggles"
)

// Server wires HTTP routes for the service API.
type Server struct {
	experiments *experiments.Service
	assignments *assignment.Service
	toggles     *toggles.Service
	metrics     *metrics.Service
}

// NewServer creates the API server over the four services.
func NewServer(
	experimentService *experiments.Service,
	assignmentService *assignment.Service,
	toggleService *toggles.Service,
	metricsService *metrics.Service,
) *Server {
	return &Server{
		experiments: experimentService,
		assignments: assignmentService,
		toggles:     toggleService,
		metrics:     metricsService,
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/experiments", s.handleExperiments)
	mux.HandleFunc("/api/experiments/", s.handleExperimentByID)
	mux.HandleFunc("/api/assign", s.handleAssign)
	mux.HandleFunc("/api/toggles", s.handleToggles)
	mux.HandleFunc("/api/toggles/", s.handleToggleByKey)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/events/batch", s.handleEventsBatch)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/stats/export", s.handleStatsExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "splitlab"})
}
