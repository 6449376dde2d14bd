// Package cleanup periodically expires early arrivals left behind by closed classes.
package cleanup

import (
	"context"
	"log"
	"time"
)

// Cleaner runs one cleanup pass and reports how many rows it changed.
type Cleaner interface {
	CleanupEarlyArrivals(ctx context.Context) (int64, error)
}

// Worker calls a Cleaner on a fixed interval.
type Worker struct {
	cleaner  Cleaner
	interval time.Duration
	enabled  bool
}

// NewWorker creates a worker. A disabled worker returns from Run immediately.
func NewWorker(cleaner Cleaner, interval time.Duration, enabled bool) *Worker {
	return &Worker{cleaner: cleaner, interval: interval, enabled: enabled}
}

// Run blocks until ctx is cancelled, running a pass at start and then every interval.
func (w *Worker) Run(ctx context.Context) {
	if !w.enabled || w.interval <= 0 {
		log.Println("Early arrival cleanup is disabled. Not starting.")
		return
	}
	log.Printf("Starting early arrival cleanup every %s...", w.interval)

	w.RunOnce(ctx)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Early arrival cleanup shutting down.")
			return
		case <-timer.C:
			w.RunOnce(ctx)
			timer.Reset(w.interval)
		}
	}
}

// RunOnce performs a single pass. Errors are logged and retried on the next tick.
func (w *Worker) RunOnce(ctx context.Context) {
	if _, err := w.cleaner.CleanupEarlyArrivals(ctx); err != nil {
		log.Printf("Error cleaning up early arrivals: %v", err)
	}
}
