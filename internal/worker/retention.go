package worker

import (
	"context"
	"log/slog"
	"time"
)

// RetentionService defines the retention operations needed by the worker.
type RetentionService interface {
	Cleanup(ctx context.Context, namespace string, daysToKeep int) (int64, error)
}

// RetentionWorker periodically prunes snapshots older than the retention
// window.
type RetentionWorker struct {
	svc        RetentionService
	namespace  string
	daysToKeep int
	interval   time.Duration
}

// NewRetentionWorker creates a worker pruning the given namespace on the
// given interval.
func NewRetentionWorker(svc RetentionService, namespace string, daysToKeep int, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{
		svc:        svc,
		namespace:  namespace,
		daysToKeep: daysToKeep,
		interval:   interval,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does NOT run immediately on start.
func (w *RetentionWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "retention",
		"interval", w.interval.String(),
		"days_to_keep", w.daysToKeep,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "retention",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runCleanup(ctx)
		}
	}
}

// runCleanup executes a single pruning cycle.
func (w *RetentionWorker) runCleanup(ctx context.Context) {
	start := time.Now()

	deleted, err := w.svc.Cleanup(ctx, w.namespace, w.daysToKeep)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return
		}
		slog.Error("cleanup failed",
			"component", "worker",
			"action", "cleanup_failed",
			"error", err,
		)
		return
	}

	slog.Info("cleanup cycle completed",
		"component", "worker",
		"action", "cleanup_complete",
		"namespace", w.namespace,
		"deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
