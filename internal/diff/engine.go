// Package diff compares two snapshots of the same namespace: a full outer
// join of their entity rows by series id, annotated with status and deltas.
package diff

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hyperengineering/statarr/internal/types"
)

// SnapshotLoader defines the repository operations needed by the engine.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, namespace string, takenAt time.Time) ([]types.SeriesMetrics, error)
}

// Engine diffs snapshots fetched from the repository.
type Engine struct {
	store SnapshotLoader
}

// NewEngine creates a diff engine over the given repository.
func NewEngine(store SnapshotLoader) *Engine {
	return &Engine{store: store}
}

// Compare loads the snapshots at oldAt and newAt and joins them by series
// id. Missing or empty snapshots propagate the repository's not-found
// error. For each series present on either side:
//
//   - status is "new" when absent in old, "removed" when absent in new,
//     "existing" otherwise
//   - deltas treat the missing side as zero
//   - SizeChangePct is nil when the old total size is zero or missing;
//     consumers rely on the nil to suppress display
//   - the title is taken from the new side when present, else the old side
//
// Rows are sorted by absolute size change descending, series id ascending
// on ties.
func (e *Engine) Compare(ctx context.Context, namespace string, oldAt, newAt time.Time) ([]types.ComparisonRow, error) {
	oldRows, err := e.store.LoadSnapshot(ctx, namespace, oldAt)
	if err != nil {
		return nil, fmt.Errorf("load old snapshot: %w", err)
	}
	newRows, err := e.store.LoadSnapshot(ctx, namespace, newAt)
	if err != nil {
		return nil, fmt.Errorf("load new snapshot: %w", err)
	}

	oldBy := make(map[int64]types.SeriesMetrics, len(oldRows))
	for _, r := range oldRows {
		oldBy[r.SeriesID] = r
	}
	newBy := make(map[int64]types.SeriesMetrics, len(newRows))
	for _, r := range newRows {
		newBy[r.SeriesID] = r
	}

	ids := make([]int64, 0, len(oldBy)+len(newBy))
	for id := range oldBy {
		ids = append(ids, id)
	}
	for id := range newBy {
		if _, seen := oldBy[id]; !seen {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]types.ComparisonRow, 0, len(ids))
	for _, id := range ids {
		oldRow, inOld := oldBy[id]
		newRow, inNew := newBy[id]
		rows = append(rows, joinRows(id, oldRow, inOld, newRow, inNew))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].SizeChangeGB) > math.Abs(rows[j].SizeChangeGB)
	})

	return rows, nil
}

func joinRows(id int64, oldRow types.SeriesMetrics, inOld bool, newRow types.SeriesMetrics, inNew bool) types.ComparisonRow {
	row := types.ComparisonRow{SeriesID: id, Status: types.ChangeExisting}

	var oldEpisodes, newEpisodes int
	var oldSize, newSize, oldAvg, newAvg float64

	if inOld {
		oldEpisodes = oldRow.EpisodeCount
		oldSize = oldRow.TotalSizeGB
		oldAvg = oldRow.AvgSizeMB
		row.Title = oldRow.Title
		row.EpisodesOld = &oldRow.EpisodeCount
		row.TotalSizeOldGB = &oldRow.TotalSizeGB
		row.AvgSizeOldMB = &oldRow.AvgSizeMB
	} else {
		row.Status = types.ChangeNew
	}

	if inNew {
		newEpisodes = newRow.EpisodeCount
		newSize = newRow.TotalSizeGB
		newAvg = newRow.AvgSizeMB
		row.Title = newRow.Title
		row.EpisodesNew = &newRow.EpisodeCount
		row.TotalSizeNewGB = &newRow.TotalSizeGB
		row.AvgSizeNewMB = &newRow.AvgSizeMB
	} else {
		row.Status = types.ChangeRemoved
	}

	row.EpisodesChange = newEpisodes - oldEpisodes
	row.SizeChangeGB = newSize - oldSize
	row.AvgSizeChangeMB = newAvg - oldAvg

	if inOld && oldSize != 0 {
		pct := row.SizeChangeGB / oldSize * 100
		row.SizeChangePct = &pct
	}

	return row
}
