// Package api provides the HTTP server for the susu ledger service.
// It is a thin layer: request parsing, domain-error mapping, JSON encoding.
// All bookkeeping decisions live in the engine.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/susu-network/susu/internal/app/engine"
	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/observability"
)

// Server is the susu HTTP API server.
type Server struct {
	engine         *engine.Engine
	audit          *observability.AuditTrail
	metricsEnabled bool
	version        string
}

// NewServer creates a new API server around the ledger engine.
func NewServer(e *engine.Engine) *Server {
	return &Server{engine: e, version: "0.1.0"}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetAuditTrail exposes the commission audit trail over the API.
func (s *Server) SetAuditTrail(trail *observability.AuditTrail) { s.audit = trail }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	r.Route("/api/accounts", func(r chi.Router) {
		r.Post("/", s.handleCreateAccount)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAccount)
			r.Post("/deposits", s.handleDeposit)
			r.Post("/withdrawals", s.handleWithdraw)
			r.Put("/rate", s.handleUpdateRate)
			r.Get("/cycle", s.handleCycleState)
			r.Post("/cycle/reset", s.handleResetCycle)
			r.Post("/cycle/adjust", s.handleAdjustCycle)
			r.Get("/ledger", s.handleLedger)
			r.Get("/commissions", s.handleCommissions)
			r.Get("/totals", s.handleTotals)
			r.Get("/audit", s.handleAudit)
		})
	})
	r.Post("/api/withdrawals/{id}/reverse", s.handleReverse)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── JSON Helpers ───────────────────────────────────────────────────────────

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var ib *domain.InsufficientBalanceError
	switch {
	case errors.As(err, &ib):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]interface{}{
				"message":   ib.Error(),
				"type":      "insufficient_balance",
				"shortfall": ib.Shortfall(),
			},
		})
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrReversalTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrAlreadyReversed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidRate),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNotAWithdrawal):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
