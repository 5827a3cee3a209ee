// Package analyze contains the pure computation layer: per-series metric
// aggregation, outlier detection over the average episode size, and the
// derived snapshot summary.
package analyze

import (
	"math"
	"time"

	"github.com/hyperengineering/statarr/internal/types"
)

// Stats reports the detection parameters and results for one snapshot.
type Stats struct {
	Mean              float64 `json:"mean"`
	Std               float64 `json:"std"`
	ZThresholdMB      float64 `json:"z_threshold_mb"`
	OutlierCount      int     `json:"outlier_count"`
	OutlierPercentage float64 `json:"outlier_percentage"`
}

// Detect annotates each row with a z-score and outlier flag based on the
// average episode size. A row is an outlier when its average size exceeds
// mean + zThreshold*std, or exceeds absoluteThresholdMB when that is set;
// the two conditions are ORed. Standard deviation is the population std.
// Empty input returns the input unchanged and zero Stats.
func Detect(rows []types.SeriesMetrics, zThreshold float64, absoluteThresholdMB *float64) ([]types.SeriesMetrics, Stats) {
	if len(rows) == 0 {
		return rows, Stats{}
	}

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.AvgSizeMB
	}
	mean := meanOf(values)
	std := populationStd(values, mean)
	zLimit := mean + zThreshold*std

	annotated := make([]types.SeriesMetrics, len(rows))
	outliers := 0
	for i, r := range rows {
		if std > 0 {
			r.ZScore = (r.AvgSizeMB - mean) / std
		} else {
			r.ZScore = 0
		}
		r.IsOutlier = std > 0 && r.AvgSizeMB > zLimit
		if absoluteThresholdMB != nil && r.AvgSizeMB > *absoluteThresholdMB {
			r.IsOutlier = true
		}
		if r.IsOutlier {
			outliers++
		}
		annotated[i] = r
	}

	return annotated, Stats{
		Mean:              mean,
		Std:               std,
		ZThresholdMB:      zLimit,
		OutlierCount:      outliers,
		OutlierPercentage: float64(outliers) / float64(len(rows)) * 100,
	}
}

// Summarize derives the summary row for a snapshot from its entity rows.
// The summary is always recomputed here; caller-supplied statistics are
// never trusted for storage.
func Summarize(namespace string, takenAt time.Time, rows []types.SeriesMetrics) types.SnapshotSummary {
	summary := types.SnapshotSummary{
		Namespace:   namespace,
		TakenAt:     takenAt,
		TotalSeries: len(rows),
	}
	if len(rows) == 0 {
		return summary
	}

	values := make([]float64, len(rows))
	for i, r := range rows {
		summary.TotalEpisodes += r.EpisodeCount
		summary.TotalStorageGB += r.TotalSizeGB
		if r.IsOutlier {
			summary.OutlierCount++
		}
		values[i] = r.AvgSizeMB
	}
	summary.MeanAvgSizeMB = meanOf(values)
	summary.StdAvgSizeMB = populationStd(values, summary.MeanAvgSizeMB)
	summary.OutlierPercentage = float64(summary.OutlierCount) / float64(len(rows)) * 100

	return summary
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStd(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
