package diff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/statarr/internal/store"
	"github.com/hyperengineering/statarr/internal/types"
)

// mockLoader serves snapshots keyed by formatted timestamp.
type mockLoader struct {
	snapshots map[string][]types.SeriesMetrics
}

func (m *mockLoader) LoadSnapshot(_ context.Context, _ string, takenAt time.Time) ([]types.SeriesMetrics, error) {
	rows, ok := m.snapshots[takenAt.Format(types.TimestampLayout)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rows, nil
}

var (
	oldAt = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	newAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(oldRows, newRows []types.SeriesMetrics) *mockLoader {
	return &mockLoader{snapshots: map[string][]types.SeriesMetrics{
		oldAt.Format(types.TimestampLayout): oldRows,
		newAt.Format(types.TimestampLayout): newRows,
	}}
}

func TestCompare_SelfComparison(t *testing.T) {
	rows := []types.SeriesMetrics{
		{SeriesID: 1, Title: "Alpha", EpisodeCount: 10, TotalSizeGB: 5.0, AvgSizeMB: 500},
		{SeriesID: 2, Title: "Beta", EpisodeCount: 20, TotalSizeGB: 10.0, AvgSizeMB: 512},
	}
	engine := NewEngine(newMock(rows, rows))

	result, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result))
	}
	for _, r := range result {
		if r.Status != types.ChangeExisting {
			t.Errorf("Series %d: expected existing, got %q", r.SeriesID, r.Status)
		}
		if r.EpisodesChange != 0 || r.SizeChangeGB != 0 || r.AvgSizeChangeMB != 0 {
			t.Errorf("Series %d: expected zero deltas, got %+v", r.SeriesID, r)
		}
		if r.SizeChangePct == nil || *r.SizeChangePct != 0 {
			t.Errorf("Series %d: expected 0%% change, got %v", r.SeriesID, r.SizeChangePct)
		}
	}
}

func TestCompare_FullOuterJoin(t *testing.T) {
	oldRows := []types.SeriesMetrics{
		{SeriesID: 1, Title: "Alpha", EpisodeCount: 10, TotalSizeGB: 5.0, AvgSizeMB: 500},
		{SeriesID: 2, Title: "Beta", EpisodeCount: 20, TotalSizeGB: 10.0, AvgSizeMB: 512},
	}
	newRows := []types.SeriesMetrics{
		{SeriesID: 2, Title: "Beta", EpisodeCount: 22, TotalSizeGB: 11.0, AvgSizeMB: 512},
		{SeriesID: 3, Title: "Gamma", EpisodeCount: 4, TotalSizeGB: 19.5, AvgSizeMB: 5000},
	}
	engine := NewEngine(newMock(oldRows, newRows))

	result, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(result))
	}

	byID := make(map[int64]types.ComparisonRow)
	for _, r := range result {
		byID[r.SeriesID] = r
	}

	removed := byID[1]
	if removed.Status != types.ChangeRemoved {
		t.Errorf("Series 1: expected removed, got %q", removed.Status)
	}
	if removed.EpisodesNew != nil || removed.TotalSizeNewGB != nil {
		t.Errorf("Series 1: expected nil new-side fields, got %+v", removed)
	}
	if removed.SizeChangeGB != -5.0 {
		t.Errorf("Series 1: expected -5.0 GB change, got %v", removed.SizeChangeGB)
	}
	if removed.SizeChangePct == nil || *removed.SizeChangePct != -100 {
		t.Errorf("Series 1: expected -100%% change, got %v", removed.SizeChangePct)
	}
	if removed.Title != "Alpha" {
		t.Errorf("Series 1: expected title from old side, got %q", removed.Title)
	}

	existing := byID[2]
	if existing.Status != types.ChangeExisting {
		t.Errorf("Series 2: expected existing, got %q", existing.Status)
	}
	if existing.EpisodesChange != 2 {
		t.Errorf("Series 2: expected +2 episodes, got %d", existing.EpisodesChange)
	}
	if existing.SizeChangePct == nil || *existing.SizeChangePct != 10 {
		t.Errorf("Series 2: expected +10%% change, got %v", existing.SizeChangePct)
	}

	added := byID[3]
	if added.Status != types.ChangeNew {
		t.Errorf("Series 3: expected new, got %q", added.Status)
	}
	if added.EpisodesOld != nil || added.TotalSizeOldGB != nil {
		t.Errorf("Series 3: expected nil old-side fields, got %+v", added)
	}
	if added.SizeChangeGB != 19.5 {
		t.Errorf("Series 3: expected 19.5 GB change, got %v", added.SizeChangeGB)
	}
	if added.SizeChangePct != nil {
		t.Errorf("Series 3: expected nil percentage for new series, got %v", *added.SizeChangePct)
	}
}

func TestCompare_NilPercentageOnZeroOldSize(t *testing.T) {
	oldRows := []types.SeriesMetrics{
		{SeriesID: 1, Title: "Alpha", EpisodeCount: 1, TotalSizeGB: 0},
	}
	newRows := []types.SeriesMetrics{
		{SeriesID: 1, Title: "Alpha", EpisodeCount: 2, TotalSizeGB: 3.0},
	}
	engine := NewEngine(newMock(oldRows, newRows))

	result, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result[0].SizeChangePct != nil {
		t.Errorf("Expected nil percentage when old size is zero, got %v", *result[0].SizeChangePct)
	}
	if result[0].SizeChangeGB != 3.0 {
		t.Errorf("Expected 3.0 GB change, got %v", result[0].SizeChangeGB)
	}
}

func TestCompare_SortedByAbsoluteSizeChange(t *testing.T) {
	oldRows := []types.SeriesMetrics{
		{SeriesID: 1, Title: "Alpha", TotalSizeGB: 10.0},
		{SeriesID: 2, Title: "Beta", TotalSizeGB: 10.0},
		{SeriesID: 3, Title: "Gamma", TotalSizeGB: 10.0},
	}
	newRows := []types.SeriesMetrics{
		{SeriesID: 1, Title: "Alpha", TotalSizeGB: 11.0}, // +1
		{SeriesID: 2, Title: "Beta", TotalSizeGB: 2.0},   // -8
		{SeriesID: 3, Title: "Gamma", TotalSizeGB: 13.0}, // +3
	}
	engine := NewEngine(newMock(oldRows, newRows))

	result, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	wantOrder := []int64{2, 3, 1}
	for i, want := range wantOrder {
		if result[i].SeriesID != want {
			t.Errorf("Position %d: expected series %d, got %d", i, want, result[i].SeriesID)
		}
	}
	for i := 1; i < len(result); i++ {
		if math.Abs(result[i].SizeChangeGB) > math.Abs(result[i-1].SizeChangeGB) {
			t.Errorf("Rows not sorted by absolute size change at position %d", i)
		}
	}
}

func TestCompare_TiesKeepSeriesIDOrder(t *testing.T) {
	oldRows := []types.SeriesMetrics{
		{SeriesID: 5, Title: "Epsilon", TotalSizeGB: 10.0},
		{SeriesID: 2, Title: "Beta", TotalSizeGB: 10.0},
	}
	newRows := []types.SeriesMetrics{
		{SeriesID: 5, Title: "Epsilon", TotalSizeGB: 12.0},
		{SeriesID: 2, Title: "Beta", TotalSizeGB: 12.0},
	}
	engine := NewEngine(newMock(oldRows, newRows))

	result, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result[0].SeriesID != 2 || result[1].SeriesID != 5 {
		t.Errorf("Expected tied rows ordered by series id, got [%d %d]",
			result[0].SeriesID, result[1].SeriesID)
	}
}

func TestCompare_MissingSnapshotPropagates(t *testing.T) {
	rows := []types.SeriesMetrics{{SeriesID: 1, Title: "Alpha", TotalSizeGB: 5.0}}

	engine := NewEngine(&mockLoader{snapshots: map[string][]types.SeriesMetrics{
		newAt.Format(types.TimestampLayout): rows,
	}})
	_, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing old snapshot, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "load old snapshot") {
		t.Errorf("Expected error naming the old side, got %q", err.Error())
	}

	engine = NewEngine(&mockLoader{snapshots: map[string][]types.SeriesMetrics{
		oldAt.Format(types.TimestampLayout): rows,
	}})
	_, err = engine.Compare(context.Background(), "alice", oldAt, newAt)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing new snapshot, got %v", err)
	}
}

// failingLoader errors on every load.
type failingLoader struct{ err error }

func (f *failingLoader) LoadSnapshot(context.Context, string, time.Time) ([]types.SeriesMetrics, error) {
	return nil, f.err
}

func TestCompare_LoaderErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("disk on fire")
	engine := NewEngine(&failingLoader{err: boom})

	_, err := engine.Compare(context.Background(), "alice", oldAt, newAt)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected loader error propagated, got %v", err)
	}
}
