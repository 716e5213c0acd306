// Package main initializes and starts the grade synchronization scheduler,
// setting up configuration, logging, the database connection, the credential
// vault, the portal client, and the ops HTTP server.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/graker/scheduler/internal/config"
	"github.com/graker/scheduler/internal/db"
	"github.com/graker/scheduler/internal/logger"
	"github.com/graker/scheduler/internal/portal"
	"github.com/graker/scheduler/internal/repository"
	"github.com/graker/scheduler/internal/server/handler/http"
	"github.com/graker/scheduler/internal/service"
	"github.com/graker/scheduler/internal/vault"
	"go.uber.org/zap"
)

// syncInterval is the fixed trigger interval, aligned to wall-clock
// quarter-hours to match the accounts' schedule slots.
const syncInterval = 15 * time.Minute

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init("Info"); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// The master key is the one configuration value without which no run can
	// ever succeed; refuse to start without it.
	if options.MasterKey == "" {
		zapLogger.Fatal("SCHEDULER_KEY environment variable is required")
	}

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Initialize the sync pipeline: vault, portal client, store, reconciler.
	credentialVault := vault.New([]byte(options.MasterKey))
	portalClient := portal.NewClient(options.PortalURL, nil)
	gradeRepo := repository.NewPostgresGradeRepository(postgresDB)
	reconciler := service.NewReconciler(gradeRepo)
	orchestrator := service.NewOrchestrator(gradeRepo, credentialVault, portalClient, reconciler, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the quarter-hour sync trigger.
	orchestrator.Start(ctx, syncInterval)
	zapLogger.Info("scheduler started", zap.Duration("interval", syncInterval))

	// Build the ops router and serve it.
	statusHandler := &http.StatusHandler{DB: postgresDB, Runs: orchestrator}
	router := http.NewRouter(statusHandler, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	go func() {
		zapLogger.Info("starting ops HTTP server", zap.String("addr", options.Addr))
		if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			zapLogger.Fatal("failed to start ops HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down scheduler")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("ops HTTP server shutdown failed", zap.Error(err))
	}
}
