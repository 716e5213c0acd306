package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/graker/scheduler/internal/models"
	"github.com/graker/scheduler/internal/portal"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned by RunOnce when a previous run has not
// finished yet. The caller skips the tick; the accounts stay due and are
// picked up by the next one.
var ErrRunInProgress = errors.New("sync run already in progress")

// AccountStore defines the persistence operations needed by the Orchestrator.
type AccountStore interface {
	// GetDueAccounts retrieves verified accounts in the given schedule slot,
	// together with their students.
	GetDueAccounts(ctx context.Context, slot int) ([]models.Account, error)
	// UpdateLastSync records the completion time of an account's sync pass.
	UpdateLastSync(ctx context.Context, accountID string, t time.Time) error
}

// SecretOpener decrypts a stored envelope secret into its plaintext.
type SecretOpener interface {
	OpenSecret(raw string) ([]byte, error)
}

// GradeFetcher retrieves a student's gradebook from the remote portal.
type GradeFetcher interface {
	FetchGrades(ctx context.Context, userID, password, childIntID string) ([]portal.CourseRecord, error)
}

// CourseReconciler persists one fetched course record for a student.
type CourseReconciler interface {
	Reconcile(ctx context.Context, studentID string, course portal.CourseRecord) error
}

// RunStats summarizes one synchronization run for logging and the ops
// status endpoint.
type RunStats struct {
	RunID      string    `json:"run_id"`
	Slot       int       `json:"slot"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Accounts int `json:"accounts"`
	Students int `json:"students"`
	Courses  int `json:"courses"`

	DecryptFailures   int `json:"decrypt_failures"`
	FetchFailures     int `json:"fetch_failures"`
	ReconcileFailures int `json:"reconcile_failures"`
}

// Orchestrator drives one synchronization run: it selects the accounts due
// for the current quarter-hour slot and, strictly sequentially, decrypts each
// account's credentials, fetches every student's gradebook, and reconciles
// each course. Accounts and students are processed independently; a failure
// in one never aborts its siblings.
type Orchestrator struct {
	store      AccountStore
	vault      SecretOpener
	portal     GradeFetcher
	reconciler CourseReconciler
	log        *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	last    *RunStats
}

// NewOrchestrator constructs an Orchestrator from its collaborators.
func NewOrchestrator(store AccountStore, vault SecretOpener, fetcher GradeFetcher, reconciler CourseReconciler, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		vault:      vault,
		portal:     fetcher,
		reconciler: reconciler,
		log:        log,
		now:        time.Now,
	}
}

// DueSlot buckets a wall-clock time into the quarter-hour schedule slot that
// is due: minutes [0,15) map to 0, [15,30) to 15, [30,45) to 30, and [45,60)
// to 45.
func DueSlot(now time.Time) int {
	m := now.Minute()
	return m - m%15
}

// portalCredentials is the decrypted form of an account's credential secret.
type portalCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// studentIdentity is the decrypted form of a student's identity secret.
type studentIdentity struct {
	IntID json.Number `json:"intId"`
}

// RunOnce executes a full synchronization run for the slot that is due at
// now. Only one run may be active at a time; a second call while a run is in
// progress returns ErrRunInProgress without touching anything.
//
// The account's last-sync timestamp is written once per account after its
// student loop completes, even if every student in it failed; per-student
// failures are reported through logs and the run's failure counters instead.
func (o *Orchestrator) RunOnce(ctx context.Context, now time.Time) (*RunStats, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	stats := &RunStats{
		RunID:     uuid.NewString(),
		Slot:      DueSlot(now),
		StartedAt: o.now(),
	}
	log := o.log.With(zap.String("run_id", stats.RunID), zap.Int("slot", stats.Slot))

	defer func() {
		stats.FinishedAt = o.now()
		o.mu.Lock()
		o.running = false
		o.last = stats
		o.mu.Unlock()
	}()

	accounts, err := o.store.GetDueAccounts(ctx, stats.Slot)
	if err != nil {
		log.Error("failed to select due accounts", zap.Error(err))
		return stats, fmt.Errorf("select due accounts: %w", err)
	}
	if len(accounts) == 0 {
		log.Info("no accounts due for sync")
		return stats, nil
	}

	log.Info("starting grade sync", zap.Int("accounts", len(accounts)))
	for _, account := range accounts {
		o.syncAccount(ctx, log, account, stats)
	}
	log.Info("grade sync completed",
		zap.Int("accounts", stats.Accounts),
		zap.Int("students", stats.Students),
		zap.Int("courses", stats.Courses))

	return stats, nil
}

// LastRun returns the stats of the most recently completed run, or nil if no
// run has completed yet.
func (o *Orchestrator) LastRun() *RunStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	stats := *o.last
	return &stats
}

// syncAccount processes one account. A credential decryption failure aborts
// the whole account; student failures only abort that student. The last-sync
// timestamp is advanced whenever the student loop ran to completion.
func (o *Orchestrator) syncAccount(ctx context.Context, log *zap.Logger, account models.Account, stats *RunStats) {
	log = log.With(zap.String("account_id", account.ID))

	plaintext, err := o.vault.OpenSecret(account.EncryptedCredentials)
	if err != nil {
		stats.DecryptFailures++
		log.Error("failed to decrypt account credentials", zap.Error(err))
		return
	}
	var creds portalCredentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		stats.DecryptFailures++
		log.Error("failed to parse account credentials", zap.Error(err))
		return
	}

	for _, student := range account.Students {
		o.syncStudent(ctx, log, student, creds, stats)
	}

	if err := o.store.UpdateLastSync(ctx, account.ID, o.now()); err != nil {
		log.Error("failed to update last sync time", zap.Error(err))
		return
	}
	stats.Accounts++
	log.Info("account synced")
}

func (o *Orchestrator) syncStudent(ctx context.Context, log *zap.Logger, student models.Student, creds portalCredentials, stats *RunStats) {
	log = log.With(zap.String("student_id", student.ID))

	plaintext, err := o.vault.OpenSecret(student.EncryptedIdentity)
	if err != nil {
		stats.DecryptFailures++
		log.Error("failed to decrypt student identity", zap.Error(err))
		return
	}
	var identity studentIdentity
	if err := json.Unmarshal(plaintext, &identity); err != nil {
		stats.DecryptFailures++
		log.Error("failed to parse student identity", zap.Error(err))
		return
	}

	courses, err := o.portal.FetchGrades(ctx, creds.Username, creds.Password, identity.IntID.String())
	if err != nil {
		stats.FetchFailures++
		log.Error("failed to fetch gradebook", zap.Error(err))
		return
	}

	for _, course := range courses {
		if err := o.reconciler.Reconcile(ctx, student.ID, course); err != nil {
			stats.ReconcileFailures++
			log.Error("failed to reconcile course",
				zap.String("course_title", course.Title), zap.Error(err))
			continue
		}
		stats.Courses++
	}

	stats.Students++
	log.Info("student synced", zap.Int("courses", len(courses)))
}
