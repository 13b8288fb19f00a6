// Package api serves the simulation engine over HTTP. It is thin
// plumbing: route dispatch, JSON shaping, and the process-wide model
// instance; every number it returns comes from the sim package.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/endowment-sim/endowment-sim/sim"
)

// Server owns the process-wide model instance. The engine is
// single-threaded; the mutex serializes every handler against it.
type Server struct {
	mu    sync.Mutex
	model *sim.Model
}

// NewServer creates a Server with a default model instance.
func NewServer() (*Server, error) {
	m, err := sim.NewModel(sim.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Server{model: m}, nil
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api", s.handleInfo)
	mux.HandleFunc("POST /api/init", s.handleInit)
	mux.HandleFunc("POST /api/step", s.handleStep)
	mux.HandleFunc("POST /api/run", s.handleRun)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/holders", s.handleHolders)
	mux.HandleFunc("GET /api/holders/{id}", s.handleHolderDetail)
	mux.HandleFunc("GET /api/proposals", s.handleProposals)
	mux.HandleFunc("GET /api/proposals/{id}", s.handleProposalDetail)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/participation", s.handleParticipation)

	// Static reference data, independent of the running instance.
	mux.HandleFunc("GET /api/multipliers", s.handleMultipliers)
	mux.HandleFunc("GET /api/archetypes", s.handleArchetypes)
	mux.HandleFunc("GET /api/defaults", s.handleDefaults)

	return logMiddleware(mux)
}

// ListenAndServe starts serving on the given port, blocking.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logrus.Infof("HTTP API listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logrus.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             "endowment-sim",
		"description":      "RSC held in the endowment account auto-earns yield. Yield = (your RSC / total RSC) x emissions x multiplier.",
		"primary_question": "What participation rate does the market equilibrate to?",
		"status":           "ready",
	})
}

// handleInit resets the model with parameters merged over the defaults.
// Invalid configurations are rejected whole; the previous model instance
// survives a failed init.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	// A supplied archetype_mix replaces the default mix wholesale;
	// decoding into the pre-filled map would merge the two.
	cfg := sim.DefaultConfig()
	defaultMix := cfg.ArchetypeMix
	cfg.ArchetypeMix = nil
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parsing init params: %w", err))
		return
	}
	if cfg.ArchetypeMix == nil {
		cfg.ArchetypeMix = defaultMix
	}

	m, err := sim.NewModel(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	s.model = m
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "initialized",
		"model":  m.Snapshot(),
	})
}

func (s *Server) handleStep(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Step()
	writeJSON(w, http.StatusOK, map[string]any{
		"model":  s.model.Snapshot(),
		"events": s.model.Events(10),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Steps int `json:"steps"`
	}
	body.Steps = 10
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parsing run params: %w", err))
		return
	}
	if body.Steps < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("steps must be non-negative, got %d", body.Steps))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.RunSteps(body.Steps)
	writeJSON(w, http.StatusOK, map[string]any{
		"model":     s.model.Snapshot(),
		"steps_run": body.Steps,
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"model":  s.model.Snapshot(),
		"events": s.model.Events(20),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.model.Metrics())
}

func (s *Server) handleHolders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.model.Holders())
}

func (s *Server) handleHolderDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid holder id %q", r.PathValue("id")))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.model.Holder(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("holder %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleProposals(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.model.Proposals())
}

func (s *Server) handleProposalDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid proposal id %q", r.PathValue("id")))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.model.Proposal(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("proposal %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.model.History())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.model.Events(limit))
}

func (s *Server) handleParticipation(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.model.Participation())
}

func (s *Server) handleMultipliers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sim.Tiers())
}

func (s *Server) handleArchetypes(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"archetypes":           sim.Archetypes(),
		"default_mix":          sim.DefaultArchetypeMix(),
		"current_distribution": s.model.ArchetypeDistribution(),
		"current_metrics":      s.model.ArchetypeMetricsByID(),
	})
}

func (s *Server) handleDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"params": sim.DefaultConfig(),
		"emission_params": map[string]float64{
			"year0_emission":    sim.Year0Emission,
			"half_life_years":   sim.HalfLifeYears,
			"year0_circulating": sim.Year0Circulating,
			"total_supply":      sim.TotalSupply,
		},
	})
}
