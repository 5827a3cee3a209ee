package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/statarr/internal/types"
)

// Metric names accepted by TimeSeries, mapped to their backing columns.
// The whitelist keeps caller input out of the generated SQL.
var timeSeriesColumns = map[string]string{
	"total_size_gb": "total_size_gb",
	"avg_size_mb":   "avg_size_mb",
	"episode_count": "episode_count",
}

// ErrUnknownMetric is returned when TimeSeries is asked for a metric outside
// the whitelist.
var ErrUnknownMetric = fmt.Errorf("unknown metric")

// TimeSeries returns the history of one metric over time, oldest first.
// With seriesID > 0 it tracks a single series; otherwise the metric is
// summed across the namespace per snapshot.
func (s *SQLiteStore) TimeSeries(ctx context.Context, namespace string, seriesID int64, metric string) ([]types.TimeSeriesPoint, error) {
	column, ok := timeSeriesColumns[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var query string
	var args []any
	if seriesID > 0 {
		query = fmt.Sprintf(`
			SELECT taken_at, series_title, %s
			FROM snapshot_series
			WHERE namespace = ? AND series_id = ?
			ORDER BY taken_at
		`, column)
		args = []any{namespace, seriesID}
	} else {
		query = fmt.Sprintf(`
			SELECT taken_at, '', SUM(%s)
			FROM snapshot_series
			WHERE namespace = ?
			GROUP BY taken_at
			ORDER BY taken_at
		`, column)
		args = []any{namespace}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("query time series: %w", err))
	}
	defer rows.Close()

	var points []types.TimeSeriesPoint
	for rows.Next() {
		var ts string
		var p types.TimeSeriesPoint
		if err := rows.Scan(&ts, &p.Title, &p.Value); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		t, err := time.Parse(types.TimestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		p.TakenAt = t
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate rows: %w", err))
	}

	return points, nil
}

// GlobalTrends returns every stored summary row for the namespace, oldest
// first, for trend rendering by the caller.
func (s *SQLiteStore) GlobalTrends(ctx context.Context, namespace string) ([]types.SnapshotSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT taken_at, total_series, total_episodes, total_storage_gb,
		       mean_avg_size_mb, std_avg_size_mb, outlier_count, outlier_percentage
		FROM snapshot_summary
		WHERE namespace = ?
		ORDER BY taken_at
	`, namespace)
	if err != nil {
		return nil, mapErr(fmt.Errorf("query trends: %w", err))
	}
	defer rows.Close()

	var summaries []types.SnapshotSummary
	for rows.Next() {
		var ts string
		summary := types.SnapshotSummary{Namespace: namespace}
		err := rows.Scan(&ts, &summary.TotalSeries, &summary.TotalEpisodes, &summary.TotalStorageGB,
			&summary.MeanAvgSizeMB, &summary.StdAvgSizeMB, &summary.OutlierCount, &summary.OutlierPercentage)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		t, err := time.Parse(types.TimestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		summary.TakenAt = t
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate rows: %w", err))
	}

	return summaries, nil
}
