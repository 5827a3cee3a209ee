package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperengineering/statarr/internal/analyze"
	"github.com/hyperengineering/statarr/internal/types"
	"github.com/hyperengineering/statarr/internal/validation"
)

// RowSink accepts an ordered sequence of named fields, one record at a time.
// *csv.Writer satisfies it.
type RowSink interface {
	Write(record []string) error
}

// SaveSnapshot persists one snapshot under (namespace, takenAt). When a
// snapshot already exists at that key and overwrite is false it fails with
// ErrSnapshotExists naming the colliding timestamp. With overwrite, the
// existing entity rows and summary are replaced in the same transaction so
// concurrent readers never observe a half-written snapshot. The summary is
// recomputed from the incoming rows. Returns the stored summary.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, namespace string, takenAt time.Time, rows []types.SeriesMetrics, overwrite bool) (*types.SnapshotSummary, error) {
	if validation.Required("namespace", namespace) != nil {
		return nil, ErrEmptyNamespace
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	takenAt = takenAt.Truncate(time.Second)
	ts := takenAt.Format(types.TimestampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	// A snapshot with zero entity rows still owns a summary row, so the
	// existence check must cover both tables or empty snapshots would
	// collide on the summary's unique key.
	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM snapshot_series WHERE namespace = ? AND taken_at = ?)
		     + (SELECT COUNT(*) FROM snapshot_summary WHERE namespace = ? AND taken_at = ?)
	`, namespace, ts, namespace, ts).Scan(&existing)
	if err != nil {
		return nil, mapErr(fmt.Errorf("check existing snapshot: %w", err))
	}

	if existing > 0 {
		if !overwrite {
			return nil, fmt.Errorf("snapshot %s: %w", ts, ErrSnapshotExists)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM snapshot_series WHERE namespace = ? AND taken_at = ?",
			namespace, ts); err != nil {
			return nil, mapErr(fmt.Errorf("delete existing series rows: %w", err))
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM snapshot_summary WHERE namespace = ? AND taken_at = ?",
			namespace, ts); err != nil {
			return nil, mapErr(fmt.Errorf("delete existing summary: %w", err))
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_series (
			namespace, taken_at, series_id, series_title, year, status,
			episode_count, total_size_gb, avg_size_mb, z_score, is_outlier
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, mapErr(fmt.Errorf("prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, row := range rows {
		outlier := 0
		if row.IsOutlier {
			outlier = 1
		}
		_, err = stmt.ExecContext(ctx,
			namespace, ts, row.SeriesID, row.Title, row.Year, row.Status,
			row.EpisodeCount, row.TotalSizeGB, row.AvgSizeMB, row.ZScore, outlier)
		if err != nil {
			return nil, mapErr(fmt.Errorf("insert series row: %w", err))
		}
	}

	summary := analyze.Summarize(namespace, takenAt, rows)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_summary (
			namespace, taken_at, total_series, total_episodes, total_storage_gb,
			mean_avg_size_mb, std_avg_size_mb, outlier_count, outlier_percentage
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, namespace, ts, summary.TotalSeries, summary.TotalEpisodes, summary.TotalStorageGB,
		summary.MeanAvgSizeMB, summary.StdAvgSizeMB, summary.OutlierCount, summary.OutlierPercentage)
	if err != nil {
		return nil, mapErr(fmt.Errorf("insert summary: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr(fmt.Errorf("commit transaction: %w", err))
	}

	return &summary, nil
}

// ListTimestamps returns all snapshot timestamps for a namespace, newest
// first.
func (s *SQLiteStore) ListTimestamps(ctx context.Context, namespace string) ([]time.Time, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT taken_at
		FROM snapshot_series
		WHERE namespace = ?
		ORDER BY taken_at DESC
	`, namespace)
	if err != nil {
		return nil, mapErr(fmt.Errorf("query timestamps: %w", err))
	}
	defer rows.Close()

	var timestamps []time.Time
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		t, err := time.Parse(types.TimestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		timestamps = append(timestamps, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate rows: %w", err))
	}

	return timestamps, nil
}

// LoadSnapshot returns the entity rows of one snapshot, sorted by average
// episode size descending. Returns ErrNotFound when no rows exist at the
// key.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, namespace string, takenAt time.Time) ([]types.SeriesMetrics, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT series_id, series_title, year, status,
		       episode_count, total_size_gb, avg_size_mb, z_score, is_outlier
		FROM snapshot_series
		WHERE namespace = ? AND taken_at = ?
		ORDER BY avg_size_mb DESC
	`, namespace, takenAt.Format(types.TimestampLayout))
	if err != nil {
		return nil, mapErr(fmt.Errorf("query snapshot: %w", err))
	}
	defer rows.Close()

	var metrics []types.SeriesMetrics
	for rows.Next() {
		m, err := scanSeriesRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		metrics = append(metrics, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate rows: %w", err))
	}

	if len(metrics) == 0 {
		return nil, ErrNotFound
	}
	return metrics, nil
}

// GetSummary returns the stored summary row for one snapshot.
func (s *SQLiteStore) GetSummary(ctx context.Context, namespace string, takenAt time.Time) (*types.SnapshotSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT total_series, total_episodes, total_storage_gb,
		       mean_avg_size_mb, std_avg_size_mb, outlier_count, outlier_percentage
		FROM snapshot_summary
		WHERE namespace = ? AND taken_at = ?
	`, namespace, takenAt.Format(types.TimestampLayout))

	summary := types.SnapshotSummary{
		Namespace: namespace,
		TakenAt:   takenAt.Truncate(time.Second),
	}
	err := row.Scan(&summary.TotalSeries, &summary.TotalEpisodes, &summary.TotalStorageGB,
		&summary.MeanAvgSizeMB, &summary.StdAvgSizeMB, &summary.OutlierCount, &summary.OutlierPercentage)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, mapErr(fmt.Errorf("scan summary: %w", err))
	}

	return &summary, nil
}

// DeleteSnapshot removes the entity rows and summary for one snapshot.
// Returns ErrNotFound when nothing matched.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, namespace string, takenAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ts := takenAt.Format(types.TimestampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	seriesRes, err := tx.ExecContext(ctx,
		"DELETE FROM snapshot_series WHERE namespace = ? AND taken_at = ?", namespace, ts)
	if err != nil {
		return mapErr(fmt.Errorf("delete series rows: %w", err))
	}
	summaryRes, err := tx.ExecContext(ctx,
		"DELETE FROM snapshot_summary WHERE namespace = ? AND taken_at = ?", namespace, ts)
	if err != nil {
		return mapErr(fmt.Errorf("delete summary: %w", err))
	}

	seriesRows, _ := seriesRes.RowsAffected()
	summaryRows, _ := summaryRes.RowsAffected()
	if seriesRows == 0 && summaryRows == 0 {
		return fmt.Errorf("snapshot %s: %w", ts, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// DeleteOlderThan removes every snapshot for the namespace whose timestamp
// precedes the cutoff day. Returns the number of entity rows removed; zero
// matches is not an error.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, namespace string, cutoff time.Time) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Day granularity: the cutoff date string compares lexicographically
	// against the full timestamp, matching everything from earlier days.
	cutoffDate := cutoff.Format(types.DateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapErr(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM snapshot_series WHERE namespace = ? AND taken_at < ?", namespace, cutoffDate)
	if err != nil {
		return 0, mapErr(fmt.Errorf("delete series rows: %w", err))
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM snapshot_summary WHERE namespace = ? AND taken_at < ?", namespace, cutoffDate); err != nil {
		return 0, mapErr(fmt.Errorf("delete summaries: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, mapErr(fmt.Errorf("commit transaction: %w", err))
	}
	return deleted, nil
}

// ExportAll streams every entity row for the namespace, across all
// timestamps, into the sink ordered by (timestamp, series title). A header
// record is written first. Returns the number of data records written;
// on a mid-stream failure the count reflects what was already written.
func (s *SQLiteStore) ExportAll(ctx context.Context, namespace string, sink RowSink) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT taken_at, series_id, series_title, year, status,
		       episode_count, total_size_gb, avg_size_mb, z_score, is_outlier
		FROM snapshot_series
		WHERE namespace = ?
		ORDER BY taken_at, series_title
	`, namespace)
	if err != nil {
		return 0, mapErr(fmt.Errorf("query history: %w", err))
	}
	defer rows.Close()

	header := []string{
		"taken_at", "series_id", "series_title", "year", "status",
		"episode_count", "total_size_gb", "avg_size_mb", "z_score", "is_outlier",
	}
	if err := sink.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	var written int64
	for rows.Next() {
		var ts string
		var m types.SeriesMetrics
		var outlier int
		err := rows.Scan(&ts, &m.SeriesID, &m.Title, &m.Year, &m.Status,
			&m.EpisodeCount, &m.TotalSizeGB, &m.AvgSizeMB, &m.ZScore, &outlier)
		if err != nil {
			return written, fmt.Errorf("scan series row: %w", err)
		}
		m.IsOutlier = outlier != 0
		record := []string{
			ts,
			strconv.FormatInt(m.SeriesID, 10),
			m.Title,
			m.Year,
			m.Status,
			strconv.Itoa(m.EpisodeCount),
			strconv.FormatFloat(m.TotalSizeGB, 'f', -1, 64),
			strconv.FormatFloat(m.AvgSizeMB, 'f', -1, 64),
			strconv.FormatFloat(m.ZScore, 'f', -1, 64),
			strconv.FormatBool(m.IsOutlier),
		}
		if err := sink.Write(record); err != nil {
			return written, fmt.Errorf("write record: %w", err)
		}
		written++
	}
	if err := rows.Err(); err != nil {
		return written, mapErr(fmt.Errorf("iterate rows: %w", err))
	}

	return written, nil
}

// scanSeriesRow scans one snapshot_series row, converting the is_outlier
// integer back to a bool.
func scanSeriesRow(scanner interface{ Scan(...any) error }) (*types.SeriesMetrics, error) {
	var m types.SeriesMetrics
	var year, status sql.NullString
	var outlier int

	err := scanner.Scan(
		&m.SeriesID,
		&m.Title,
		&year,
		&status,
		&m.EpisodeCount,
		&m.TotalSizeGB,
		&m.AvgSizeMB,
		&m.ZScore,
		&outlier,
	)
	if err != nil {
		return nil, err
	}

	m.Year = year.String
	m.Status = status.String
	m.IsOutlier = outlier != 0

	return &m, nil
}
