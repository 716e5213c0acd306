package service

import (
	"context"
	"errors"
	"time"
)

// Start launches the periodic trigger for synchronization runs. The first
// tick is aligned to the next wall-clock boundary of interval, so a 15-minute
// interval fires at :00, :15, :30, and :45, matching the schedule slots
// accounts are provisioned with. Runs continue until ctx is canceled.
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration) {
	go func() {
		timer := time.NewTimer(time.Until(nextBoundary(o.now(), interval)))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		o.tick(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.tick(ctx)
			}
		}
	}()
}

func (o *Orchestrator) tick(ctx context.Context) {
	if _, err := o.RunOnce(ctx, o.now()); errors.Is(err, ErrRunInProgress) {
		o.log.Warn("previous sync run still active, skipping tick")
	}
}

// nextBoundary returns the first wall-clock multiple of interval after now.
func nextBoundary(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}
