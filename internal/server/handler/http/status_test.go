package http_test

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	handler "github.com/graker/scheduler/internal/server/handler/http"
	"github.com/graker/scheduler/internal/service"
	"go.uber.org/zap"
)

// fakeRunReporter returns preconfigured run stats.
type fakeRunReporter struct {
	last *service.RunStats
}

func (f *fakeRunReporter) LastRun() *service.RunStats { return f.last }

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	h := &handler.StatusHandler{DB: db, Runs: &fakeRunReporter{}}
	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != nethttp.StatusOK {
		t.Errorf("status = %d; want %d", w.Code, nethttp.StatusOK)
	}
	if body := w.Body.String(); body != "ok" {
		t.Errorf("body = %q; want %q", body, "ok")
	}
}

func TestStatus_NoRunYet(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer db.Close()

	h := &handler.StatusHandler{DB: db, Runs: &fakeRunReporter{}}
	req := httptest.NewRequest(nethttp.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	h.Status(w, req)

	if w.Code != nethttp.StatusOK {
		t.Errorf("status = %d; want %d", w.Code, nethttp.StatusOK)
	}

	var resp struct {
		LastRun *service.RunStats `json:"last_run"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LastRun != nil {
		t.Errorf("last_run = %+v; want null", resp.LastRun)
	}
}

func TestStatus_ReportsLastRun(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer db.Close()

	stats := &service.RunStats{
		RunID:      "run-1",
		Slot:       30,
		StartedAt:  time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 10, 31, 0, 0, time.UTC),
		Accounts:   2,
		Students:   3,
		Courses:    17,
	}

	router := handler.NewRouter(&handler.StatusHandler{DB: db, Runs: &fakeRunReporter{last: stats}}, zap.NewNop())
	req := httptest.NewRequest(nethttp.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var resp struct {
		LastRun *service.RunStats `json:"last_run"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LastRun == nil || resp.LastRun.RunID != "run-1" || resp.LastRun.Courses != 17 {
		t.Errorf("last_run = %+v; want run-1 with 17 courses", resp.LastRun)
	}
}
