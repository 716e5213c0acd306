package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graker/scheduler/internal/models"
	"go.uber.org/zap"
)

func TestStart_RunsOnEachTick(t *testing.T) {
	var runs atomic.Int32
	store := &fakeAccountStore{
		GetDueAccountsFunc: func(context.Context, int) ([]models.Account, error) {
			runs.Add(1)
			return nil, nil
		},
		UpdateLastSyncFunc: func(context.Context, string, time.Time) error { return nil },
	}

	o := NewOrchestrator(store, plaintextOpener(), &fakeFetcher{}, &fakeReconciler{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx, 20*time.Millisecond)

	time.Sleep(110 * time.Millisecond)
	cancel()

	if got := runs.Load(); got < 2 {
		t.Errorf("runs after several intervals = %d; want at least 2", got)
	}
}

func TestNextBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 7, 30, 0, time.UTC)
	want := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	if got := nextBoundary(now, 15*time.Minute); !got.Equal(want) {
		t.Errorf("nextBoundary = %v; want %v", got, want)
	}

	// exactly on a boundary moves to the next one
	onBoundary := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	wantNext := time.Date(2026, 3, 1, 10, 45, 0, 0, time.UTC)
	if got := nextBoundary(onBoundary, 15*time.Minute); !got.Equal(wantNext) {
		t.Errorf("nextBoundary on boundary = %v; want %v", got, wantNext)
	}
}
