package snapshot

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers publish cycles on a periodic interval and on demand.
// Triggers arriving while a cycle runs coalesce into one follow-up cycle.
type Scheduler struct {
	interval  time.Duration
	publisher *Publisher
	trigger   chan struct{}
}

// NewScheduler creates a scheduler. A non-positive interval disables the timer;
// cycles then run only on Trigger.
func NewScheduler(interval time.Duration, publisher *Publisher) *Scheduler {
	return &Scheduler{
		interval:  interval,
		publisher: publisher,
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger requests a publish cycle without blocking.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start publishes once, then on every tick or trigger.
// Runs until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Info("[Scheduler] Starting snapshot scheduler", "interval", s.interval)

	s.publish(ctx, "startup")

	for {
		select {
		case <-tick:
			s.publish(ctx, "interval")
		case <-s.trigger:
			s.publish(ctx, "trigger")
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Running final publish before shutdown...")
			s.publish(shutdownCtx, "shutdown")
			slog.Info("[Scheduler] Final publish complete")

			return nil
		}
	}
}

func (s *Scheduler) publish(ctx context.Context, reason string) {
	snap, err := s.publisher.Publish(ctx)
	if err != nil {
		// Already logged and reflected in health; the previous snapshot stays live.
		slog.Debug("[Scheduler] Publish cycle aborted", "reason", reason, "kind", KindOf(err))
		return
	}
	slog.Debug("[Scheduler] Publish cycle done", "reason", reason, "version", snap.Version)
}
