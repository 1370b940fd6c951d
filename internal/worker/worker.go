// Package worker runs background maintenance for the session store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/signup/internal/metrics"
)

// Sweeper is the part of session.Store the sweeper needs.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Worker periodically removes expired sessions from the store.
// Expired sessions are already unusable; sweeping only reclaims space.
type Worker struct {
	store  Sweeper
	config Config
	logger *slog.Logger

	// Synchronization
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(store Sweeper, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		store:  store,
		config: config,
		logger: logger.With("component", "session_sweeper"),
		stopCh: make(chan struct{}),
	}, nil
}

// Start runs one sweep immediately and then one per Interval.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Session sweeper started", "interval", w.config.Interval)
}

// Stop signals the loop to exit and waits up to ShutdownTimeout for a
// running sweep. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Session sweeper stopped")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Session sweeper shutdown timeout exceeded")
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs a single DeleteExpired call. Failures are logged and retried
// on the next tick.
func (w *Worker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.config.SweepTimeout)
	defer cancel()

	start := time.Now()
	n, err := w.store.DeleteExpired(sweepCtx)
	if err != nil {
		metrics.SweepFailed()
		w.logger.Error("Failed to delete expired sessions", "error", err)
		return
	}

	metrics.SweepCompleted(n, time.Since(start))
	if n > 0 {
		w.logger.Info("Deleted expired sessions", "count", n)
	}
}
