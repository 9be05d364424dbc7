package generator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner fires the daily generation cycle at a configured UTC hour. The
// cycle itself is idempotent, so a restart re-triggering the same day is
// harmless.
type Runner struct {
	mu        sync.RWMutex
	generator *Generator
	logger    *slog.Logger
	hour      int
	interval  time.Duration
	lastRun   string
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRunner(g *Generator, logger *slog.Logger, hour int) *Runner {
	return &Runner{
		generator: g,
		logger:    logger,
		hour:      hour,
		interval:  time.Minute,
	}
}

// Start begins the runner loop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the runner.
func (r *Runner) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	done := r.done
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (r *Runner) tick(now time.Time) {
	if now.Hour() < r.hour {
		return
	}
	day := now.Format("2006-01-02")

	r.mu.Lock()
	if r.lastRun == day {
		r.mu.Unlock()
		return
	}
	r.lastRun = day
	r.mu.Unlock()

	r.logger.Info("scheduled generation starting", "day", day, "hour", r.hour)
	report := r.generator.Run(0, false, now)
	if len(report.Errors) > 0 {
		r.logger.Error("scheduled generation finished with errors", "day", day, "errors", report.Errors)
	}
}
