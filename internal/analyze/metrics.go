package analyze

import (
	"sort"
	"strconv"

	"github.com/hyperengineering/statarr/internal/types"
)

// SeriesInfo describes one series from the upstream library.
type SeriesInfo struct {
	ID     int64
	Title  string
	Year   int
	Status string
}

// FileInfo describes one media file belonging to a series.
type FileInfo struct {
	SeriesID  int64
	SizeBytes int64
}

const (
	bytesPerGB = 1024 * 1024 * 1024
	bytesPerMB = 1024 * 1024
)

// ComputeMetrics aggregates media files by series into per-series metric
// rows: episode count, total size in GB, and average episode size in MB.
// Series with no files are dropped. Rows are ordered by series id for
// deterministic output; z-score and outlier fields are left zeroed for
// Detect to fill in.
func ComputeMetrics(series []SeriesInfo, files []FileInfo) []types.SeriesMetrics {
	type agg struct {
		count int
		bytes int64
	}
	bySeries := make(map[int64]*agg, len(series))
	for _, f := range files {
		a := bySeries[f.SeriesID]
		if a == nil {
			a = &agg{}
			bySeries[f.SeriesID] = a
		}
		a.count++
		a.bytes += f.SizeBytes
	}

	rows := make([]types.SeriesMetrics, 0, len(series))
	for _, s := range series {
		a := bySeries[s.ID]
		if a == nil || a.count == 0 {
			continue
		}
		year := "N/A"
		if s.Year > 0 {
			year = strconv.Itoa(s.Year)
		}
		rows = append(rows, types.SeriesMetrics{
			SeriesID:     s.ID,
			Title:        s.Title,
			Year:         year,
			Status:       s.Status,
			EpisodeCount: a.count,
			TotalSizeGB:  float64(a.bytes) / bytesPerGB,
			AvgSizeMB:    float64(a.bytes) / float64(a.count) / bytesPerMB,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SeriesID < rows[j].SeriesID
	})
	return rows
}
