// Package worker contains the background loops: scheduled analysis runs and
// retention pruning. Workers run until their context is cancelled and never
// abort the process on a failed cycle.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/statarr/internal/analyze"
	"github.com/hyperengineering/statarr/internal/sonarr"
	"github.com/hyperengineering/statarr/internal/types"
)

// LibraryClient defines the upstream fetch operations needed by the
// analysis pipeline.
type LibraryClient interface {
	Series(ctx context.Context) ([]sonarr.Series, error)
	EpisodeFiles(ctx context.Context, seriesID int64) ([]sonarr.EpisodeFile, error)
}

// SnapshotSaver defines the store operations needed by the analysis
// pipeline.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, namespace string, takenAt time.Time, rows []types.SeriesMetrics, overwrite bool) (*types.SnapshotSummary, error)
}

// AnalysisRunner executes one full analysis pass: fetch library data,
// compute per-series metrics, detect outliers, persist the snapshot.
// It is shared by the CLI analyze command and the scheduled worker.
type AnalysisRunner struct {
	client    LibraryClient
	store     SnapshotSaver
	namespace string

	zThreshold          float64
	absoluteThresholdMB float64
}

// NewAnalysisRunner creates a runner for the given namespace.
// absoluteThresholdMB of zero disables the absolute threshold.
func NewAnalysisRunner(client LibraryClient, store SnapshotSaver, namespace string, zThreshold, absoluteThresholdMB float64) *AnalysisRunner {
	return &AnalysisRunner{
		client:              client,
		store:               store,
		namespace:           namespace,
		zThreshold:          zThreshold,
		absoluteThresholdMB: absoluteThresholdMB,
	}
}

// RunOnce performs a single analysis pass and saves the snapshot at takenAt.
// A series whose episode files cannot be fetched is skipped, not fatal.
func (r *AnalysisRunner) RunOnce(ctx context.Context, takenAt time.Time, overwrite bool) (*types.SnapshotSummary, analyze.Stats, error) {
	runID := ulid.Make().String()
	start := time.Now()

	series, err := r.client.Series(ctx)
	if err != nil {
		return nil, analyze.Stats{}, fmt.Errorf("fetch series: %w", err)
	}

	seriesInfo := make([]analyze.SeriesInfo, 0, len(series))
	var files []analyze.FileInfo
	skipped := 0
	for _, s := range series {
		seriesInfo = append(seriesInfo, analyze.SeriesInfo{
			ID:     s.ID,
			Title:  s.Title,
			Year:   s.Year,
			Status: s.Status,
		})

		episodeFiles, err := r.client.EpisodeFiles(ctx, s.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, analyze.Stats{}, ctx.Err()
			}
			skipped++
			slog.Warn("skipping series",
				"component", "worker",
				"run_id", runID,
				"series_id", s.ID,
				"error", err,
			)
			continue
		}
		for _, f := range episodeFiles {
			files = append(files, analyze.FileInfo{SeriesID: f.SeriesID, SizeBytes: f.Size})
		}
	}

	rows := analyze.ComputeMetrics(seriesInfo, files)

	var absolute *float64
	if r.absoluteThresholdMB > 0 {
		absolute = &r.absoluteThresholdMB
	}
	annotated, stats := analyze.Detect(rows, r.zThreshold, absolute)

	summary, err := r.store.SaveSnapshot(ctx, r.namespace, takenAt, annotated, overwrite)
	if err != nil {
		return nil, stats, fmt.Errorf("save snapshot: %w", err)
	}

	slog.Info("analysis run completed",
		"component", "worker",
		"action", "analysis_complete",
		"run_id", runID,
		"namespace", r.namespace,
		"series", len(annotated),
		"skipped", skipped,
		"outliers", stats.OutlierCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, stats, nil
}

// AnalysisWorker periodically runs the analysis pipeline, overwriting the
// snapshot at the current timestamp.
type AnalysisWorker struct {
	runner   *AnalysisRunner
	interval time.Duration
}

// NewAnalysisWorker creates a worker running the pipeline on the given
// interval.
func NewAnalysisWorker(runner *AnalysisRunner, interval time.Duration) *AnalysisWorker {
	return &AnalysisWorker{runner: runner, interval: interval}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does NOT run immediately on start (a fresh analysis is best run on
// schedule, not at every restart).
func (w *AnalysisWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "analysis",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "analysis",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			if _, _, err := w.runner.RunOnce(ctx, time.Now(), true); err != nil {
				// Check for graceful shutdown
				if ctx.Err() != nil {
					return
				}
				slog.Error("analysis run failed",
					"component", "worker",
					"action", "analysis_failed",
					"error", err,
				)
			}
		}
	}
}
