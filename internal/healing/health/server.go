package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/planner"
)

// Controller is the mutating side of the executor.
type Controller interface {
	Execute(ctx context.Context, action string, actx domain.ActionContext) bool
	RollbackLastAction(ctx context.Context) bool
	ResetCircuitBreaker() bool
	ActionHistory(limit int) []domain.RecoveryResult
}

// IssueHandler plans and executes recoveries for detected issues.
type IssueHandler interface {
	Analyze(metrics map[string]float64) string
	Handle(ctx context.Context, issue string, actx domain.ActionContext) planner.CycleReport
}

// Server provides HTTP endpoints for health monitoring and manual control.
type Server struct {
	monitor    *Monitor
	controller Controller
	issues     IssueHandler
	server     *http.Server
}

// NewServer creates a new health server. issues may be nil.
func NewServer(monitor *Monitor, controller Controller, issues IssueHandler, port int) *Server {
	s := &Server{
		monitor:    monitor,
		controller: controller,
		issues:     issues,
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /actions", s.handleAction)
	mux.HandleFunc("POST /rollback", s.handleRollback)
	mux.HandleFunc("POST /circuit/reset", s.handleCircuitReset)
	if s.issues != nil {
		mux.HandleFunc("POST /issues", s.handleIssue)
	}
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	status := http.StatusOK
	if report.SystemStatus == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.CheckHealth(r.Context()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.controller.ActionHistory(limit))
}

type actionRequest struct {
	Action  string               `json:"action"`
	Context domain.ActionContext `json:"context"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	success := s.controller.Execute(r.Context(), req.Action, req.Context)
	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	success := s.controller.RollbackLastAction(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if !s.controller.ResetCircuitBreaker() {
		writeError(w, http.StatusConflict, "circuit breaker is disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

type issueRequest struct {
	Issue   string               `json:"issue"`
	Metrics map[string]float64   `json:"metrics"`
	Context domain.ActionContext `json:"context"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	issue := req.Issue
	if issue == "" {
		if len(req.Metrics) == 0 {
			writeError(w, http.StatusBadRequest, "issue or metrics is required")
			return
		}
		issue = s.issues.Analyze(req.Metrics)
	}

	writeJSON(w, http.StatusOK, s.issues.Handle(r.Context(), issue, req.Context))
}
