// Package http provides the ops HTTP handlers for the scheduler: liveness
// and run-status reporting.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/graker/scheduler/internal/service"
)

// RunReporter exposes the stats of the most recently completed sync run.
type RunReporter interface {
	// LastRun returns the last completed run's stats, or nil if no run has
	// completed yet.
	LastRun() *service.RunStats
}

// StatusHandler handles ops requests for scheduler health and run status.
type StatusHandler struct {
	// DB is the database handle used by the health check.
	DB *sql.DB
	// Runs reports completed synchronization runs.
	Runs RunReporter
}

// Health handles GET /healthz. It pings the database and responds 200 when
// the scheduler can reach its store, 503 otherwise.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Status handles GET /status. It writes the last completed run's stats as
// JSON, or {"last_run":null} before the first run completes.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		LastRun *service.RunStats `json:"last_run"`
	}{
		LastRun: h.Runs.LastRun(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
