// Package types defines the core domain records shared across statarr:
// per-series metric rows, snapshot summaries, comparison rows, and the
// encrypted credential record.
package types

import "time"

// TimestampLayout is the storage format for snapshot timestamps.
// Second precision; lexicographic order equals chronological order.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the day-granularity format used for retention cutoffs.
const DateLayout = "2006-01-02"

// SeriesMetrics is one entity row of a snapshot: the size/count statistics
// for a single series at a single analysis time, plus outlier annotation.
type SeriesMetrics struct {
	SeriesID     int64   `json:"series_id"`
	Title        string  `json:"title"`
	Year         string  `json:"year,omitempty"`
	Status       string  `json:"status,omitempty"`
	EpisodeCount int     `json:"episode_count"`
	TotalSizeGB  float64 `json:"total_size_gb"`
	AvgSizeMB    float64 `json:"avg_size_mb"`
	ZScore       float64 `json:"z_score"`
	IsOutlier    bool    `json:"is_outlier"`
}

// SnapshotSummary is the derived summary row for one snapshot.
// It is recomputed from the entity rows at save time and never hand-edited.
type SnapshotSummary struct {
	Namespace         string    `json:"namespace"`
	TakenAt           time.Time `json:"taken_at"`
	TotalSeries       int       `json:"total_series"`
	TotalEpisodes     int       `json:"total_episodes"`
	TotalStorageGB    float64   `json:"total_storage_gb"`
	MeanAvgSizeMB     float64   `json:"mean_avg_size_mb"`
	StdAvgSizeMB      float64   `json:"std_avg_size_mb"`
	OutlierCount      int       `json:"outlier_count"`
	OutlierPercentage float64   `json:"outlier_percentage"`
}

// ChangeStatus classifies a series in a snapshot comparison.
type ChangeStatus string

const (
	ChangeNew      ChangeStatus = "new"
	ChangeRemoved  ChangeStatus = "removed"
	ChangeExisting ChangeStatus = "existing"
)

// ComparisonRow is one row of a snapshot diff: the full outer join of two
// snapshots on series id, annotated with status and deltas. Pointer fields
// are nil for the side the series is absent from; SizeChangePct is nil when
// the old total size is zero or missing.
type ComparisonRow struct {
	SeriesID        int64        `json:"series_id"`
	Title           string       `json:"title"`
	Status          ChangeStatus `json:"status"`
	EpisodesOld     *int         `json:"episodes_old"`
	EpisodesNew     *int         `json:"episodes_new"`
	EpisodesChange  int          `json:"episodes_change"`
	TotalSizeOldGB  *float64     `json:"total_size_old_gb"`
	TotalSizeNewGB  *float64     `json:"total_size_new_gb"`
	SizeChangeGB    float64      `json:"size_change_gb"`
	SizeChangePct   *float64     `json:"size_change_pct"`
	AvgSizeOldMB    *float64     `json:"avg_size_old_mb"`
	AvgSizeNewMB    *float64     `json:"avg_size_new_mb"`
	AvgSizeChangeMB float64      `json:"avg_size_change_mb"`
}

// Credentials is the decrypted secret payload for one namespace: the Sonarr
// endpoint and its API key.
type Credentials struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// SecretRecord is the stored form of a namespace's credentials. EndpointURL
// is kept in cleartext for display/indexing and must always agree with the
// URL inside the ciphertext after any write.
type SecretRecord struct {
	Namespace   string    `json:"namespace"`
	EndpointURL string    `json:"endpoint_url"`
	Ciphertext  []byte    `json:"-"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimeSeriesPoint is one observation of a metric over time, either for a
// single series (Title set) or aggregated across a namespace.
type TimeSeriesPoint struct {
	TakenAt time.Time `json:"taken_at"`
	Title   string    `json:"title,omitempty"`
	Value   float64   `json:"value"`
}
