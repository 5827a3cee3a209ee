package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/statarr/internal/sonarr"
	"github.com/hyperengineering/statarr/internal/types"
)

// mockLibraryClient serves canned library data, with per-series failures.
type mockLibraryClient struct {
	series    []sonarr.Series
	seriesErr error
	files     map[int64][]sonarr.EpisodeFile
	filesErr  map[int64]error
}

func (m *mockLibraryClient) Series(ctx context.Context) ([]sonarr.Series, error) {
	if m.seriesErr != nil {
		return nil, m.seriesErr
	}
	return m.series, nil
}

func (m *mockLibraryClient) EpisodeFiles(ctx context.Context, seriesID int64) ([]sonarr.EpisodeFile, error) {
	if err := m.filesErr[seriesID]; err != nil {
		return nil, err
	}
	return m.files[seriesID], nil
}

// mockSnapshotSaver records save calls.
type mockSnapshotSaver struct {
	mu      sync.Mutex
	calls   []saveCall
	saveErr error
}

type saveCall struct {
	namespace string
	takenAt   time.Time
	rows      []types.SeriesMetrics
	overwrite bool
}

func (m *mockSnapshotSaver) SaveSnapshot(ctx context.Context, namespace string, takenAt time.Time, rows []types.SeriesMetrics, overwrite bool) (*types.SnapshotSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, saveCall{namespace: namespace, takenAt: takenAt, rows: rows, overwrite: overwrite})
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return &types.SnapshotSummary{Namespace: namespace, TakenAt: takenAt, TotalSeries: len(rows)}, nil
}

func (m *mockSnapshotSaver) getCalls() []saveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]saveCall{}, m.calls...)
}

func testLibrary() *mockLibraryClient {
	return &mockLibraryClient{
		series: []sonarr.Series{
			{ID: 1, Title: "Alpha", Year: 2020, Status: "continuing"},
			{ID: 2, Title: "Beta", Year: 2018, Status: "ended"},
		},
		files: map[int64][]sonarr.EpisodeFile{
			1: {
				{ID: 10, SeriesID: 1, Size: 512 * 1024 * 1024},
				{ID: 11, SeriesID: 1, Size: 512 * 1024 * 1024},
			},
			2: {
				{ID: 20, SeriesID: 2, Size: 5 * 1024 * 1024 * 1024},
			},
		},
		filesErr: map[int64]error{},
	}
}

func TestAnalysisRunner_RunOnce(t *testing.T) {
	saver := &mockSnapshotSaver{}
	runner := NewAnalysisRunner(testLibrary(), saver, "alice", 2.0, 0)
	takenAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	summary, stats, err := runner.RunOnce(context.Background(), takenAt, false)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.TotalSeries != 2 {
		t.Errorf("Expected 2 series in summary, got %d", summary.TotalSeries)
	}
	if stats.Mean == 0 {
		t.Error("Expected non-zero mean in stats")
	}

	calls := saver.getCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 save call, got %d", len(calls))
	}
	call := calls[0]
	if call.namespace != "alice" {
		t.Errorf("Expected namespace alice, got %q", call.namespace)
	}
	if !call.takenAt.Equal(takenAt) {
		t.Errorf("Expected takenAt %v, got %v", takenAt, call.takenAt)
	}
	if call.overwrite {
		t.Error("Expected overwrite=false passed through")
	}
	if len(call.rows) != 2 {
		t.Fatalf("Expected 2 metric rows, got %d", len(call.rows))
	}

	byID := make(map[int64]types.SeriesMetrics)
	for _, r := range call.rows {
		byID[r.SeriesID] = r
	}
	if got := byID[1].AvgSizeMB; got != 512 {
		t.Errorf("Expected series 1 average 512 MB, got %v", got)
	}
	if got := byID[2].TotalSizeGB; got != 5 {
		t.Errorf("Expected series 2 total 5 GB, got %v", got)
	}
}

func TestAnalysisRunner_AbsoluteThresholdApplied(t *testing.T) {
	saver := &mockSnapshotSaver{}
	// 1000 MB absolute threshold flags series 2 (5120 MB average).
	runner := NewAnalysisRunner(testLibrary(), saver, "alice", 2.0, 1000)

	_, stats, err := runner.RunOnce(context.Background(), time.Now(), false)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if stats.OutlierCount != 1 {
		t.Errorf("Expected 1 outlier, got %d", stats.OutlierCount)
	}

	rows := saver.getCalls()[0].rows
	for _, r := range rows {
		want := r.SeriesID == 2
		if r.IsOutlier != want {
			t.Errorf("Series %d: expected outlier=%v, got %v", r.SeriesID, want, r.IsOutlier)
		}
	}
}

func TestAnalysisRunner_SkipsFailingSeries(t *testing.T) {
	client := testLibrary()
	client.filesErr[1] = errors.New("connection reset")
	saver := &mockSnapshotSaver{}
	runner := NewAnalysisRunner(client, saver, "alice", 2.0, 0)

	_, _, err := runner.RunOnce(context.Background(), time.Now(), false)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	rows := saver.getCalls()[0].rows
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row after skipping failed series, got %d", len(rows))
	}
	if rows[0].SeriesID != 2 {
		t.Errorf("Expected surviving series 2, got %d", rows[0].SeriesID)
	}
}

func TestAnalysisRunner_SeriesFetchFailureIsFatal(t *testing.T) {
	client := testLibrary()
	boom := errors.New("unreachable")
	client.seriesErr = boom
	saver := &mockSnapshotSaver{}
	runner := NewAnalysisRunner(client, saver, "alice", 2.0, 0)

	_, _, err := runner.RunOnce(context.Background(), time.Now(), false)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected fetch error propagated, got %v", err)
	}
	if len(saver.getCalls()) != 0 {
		t.Error("Expected no save call after fetch failure")
	}
}

func TestAnalysisRunner_SaveFailurePropagates(t *testing.T) {
	boom := errors.New("disk full")
	saver := &mockSnapshotSaver{saveErr: boom}
	runner := NewAnalysisRunner(testLibrary(), saver, "alice", 2.0, 0)

	_, _, err := runner.RunOnce(context.Background(), time.Now(), false)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected save error propagated, got %v", err)
	}
}

func TestAnalysisWorker_RunsOnScheduleWithOverwrite(t *testing.T) {
	saver := &mockSnapshotSaver{}
	runner := NewAnalysisRunner(testLibrary(), saver, "alice", 2.0, 0)
	worker := NewAnalysisWorker(runner, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// Wait for at least 2 ticks
	time.Sleep(120 * time.Millisecond)
	cancel()

	calls := saver.getCalls()
	if len(calls) < 2 {
		t.Errorf("Expected at least 2 save calls, got %d", len(calls))
	}
	for _, call := range calls {
		if !call.overwrite {
			t.Error("Expected scheduled runs to overwrite")
		}
	}
}

func TestAnalysisWorker_DoesNotRunImmediately(t *testing.T) {
	saver := &mockSnapshotSaver{}
	runner := NewAnalysisRunner(testLibrary(), saver, "alice", 2.0, 0)
	worker := NewAnalysisWorker(runner, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	if calls := saver.getCalls(); len(calls) != 0 {
		t.Errorf("Expected 0 save calls (does not run immediately), got %d", len(calls))
	}
}

func TestAnalysisWorker_GracefulShutdown(t *testing.T) {
	saver := &mockSnapshotSaver{}
	runner := NewAnalysisRunner(testLibrary(), saver, "alice", 2.0, 0)
	worker := NewAnalysisWorker(runner, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
		// Success
	case <-time.After(1 * time.Second):
		t.Error("Worker did not stop within 1 second")
	}
}
