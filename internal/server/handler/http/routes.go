package http

import (
	"net/http"
	"time"

	"github.com/graker/scheduler/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
)

// healthTimeout bounds the database ping performed by the health check.
const healthTimeout = 2 * time.Second

// NewRouter constructs the ops HTTP handler for the scheduler.
//
// Routes:
//
//	GET /healthz → statusHandler.Health
//	GET /status  → statusHandler.Status
//
// Every request is logged through the zap request-logging middleware.
func NewRouter(statusHandler *StatusHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/healthz", statusHandler.Health)
	r.Get("/status", statusHandler.Status)

	return r
}
