// Package retention prunes stale snapshots and exports snapshot history as
// CSV, locally or to S3-compatible offsite storage.
package retention

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/hyperengineering/statarr/internal/store"
)

// ErrInvalidDays is returned when daysToKeep is negative.
var ErrInvalidDays = errors.New("days to keep must not be negative")

// HistoryStore defines the repository operations needed for retention and
// export.
type HistoryStore interface {
	DeleteOlderThan(ctx context.Context, namespace string, cutoff time.Time) (int64, error)
	ExportAll(ctx context.Context, namespace string, sink store.RowSink) (int64, error)
}

// Service enforces the rolling snapshot window and serves exports.
type Service struct {
	store HistoryStore
	now   func() time.Time
}

// NewService creates a retention service over the given repository.
func NewService(db HistoryStore) *Service {
	return &Service{store: db, now: time.Now}
}

// Cleanup deletes every snapshot for the namespace older than
// now - daysToKeep, at day granularity. Returns the number of entity rows
// removed; zero matches is not an error.
func (s *Service) Cleanup(ctx context.Context, namespace string, daysToKeep int) (int64, error) {
	if daysToKeep < 0 {
		return 0, ErrInvalidDays
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	return s.store.DeleteOlderThan(ctx, namespace, cutoff)
}

// ExportCSV streams the namespace's full snapshot history into w as CSV,
// ordered by (timestamp, series title). Returns the number of data records
// written; a mid-stream failure reports the count that succeeded.
func (s *Service) ExportCSV(ctx context.Context, namespace string, w io.Writer) (int64, error) {
	cw := csv.NewWriter(w)
	written, err := s.store.ExportAll(ctx, namespace, cw)
	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	return written, err
}
