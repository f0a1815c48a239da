package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore opens a fresh database in the test's temp dir
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "nested", "results.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	run, err := s.CreateRun(context.Background(), "/data", 3)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// migrations already applied
	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "/data", got.Root)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(MemoryPath, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateRun(context.Background(), "/data", 0)
	assert.NoError(t, err)
}

func TestRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	first, err := s.CreateRun(ctx, "/data/a", 2)
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, "/data/b", 5)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := s.GetRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 2, got.FileCount)
	assert.Nil(t, got.FinishedAt)
	assert.WithinDuration(t, first.StartedAt, got.StartedAt, time.Millisecond)

	require.NoError(t, s.FinishRun(ctx, first.ID))
	got, err = s.GetRun(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	assert.ErrorIs(t, s.FinishRun(ctx, "missing"), ErrRunNotFound)
	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFileResults_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "/data", 2)
	require.NoError(t, err)

	start := time.Date(1900, 1, 1, 10, 5, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)

	var withMetrics FileResult
	withMetrics.Path = "/data/supervised/sub1001/sub1001_wk3_ses1.csv"
	withMetrics.Group = "supervised"
	withMetrics.Subject = "sub1001"
	withMetrics.Week = 3
	withMetrics.Session = "1"
	withMetrics.Supervised = true
	withMetrics.SampleCount = 2700
	withMetrics.Report.Add(Defect{Kind: KindDurationTrim, Message: "trimmed", Details: []DefectDetail{
		{Start: &start, End: &end, DurationS: floatPtr(120)},
	}})
	withMetrics.Report.Add(Defect{Kind: KindBoundedShort, Message: "bounded bout too short"})
	withMetrics.Metrics = &SessionMetrics{
		Week:                3,
		TimeInAllowedS:      1500,
		TimeAboveS:          300,
		TimeBelowS:          900,
		LongestBoundedBoutS: 600,
		BoundedMet:          false,
		ZoneCompliance:      floatPtr(1500.0 / 2700.0),
		MAZD:                floatPtr(0.25),
		TRIMP:               nil,
	}

	var gapped FileResult
	gapped.Path = "/data/unsupervised/sub1002/sub1002_wk8_ses2.fit"
	gapped.Group = "unsupervised"
	gapped.Subject = "sub1002"
	gapped.Week = 8
	gapped.Session = "2"
	gapped.SampleCount = 1200
	gapped.Report.Add(Defect{Kind: KindMissing, Message: "missing significant time", Details: []DefectDetail{
		{Start: &start, End: &end, DurationS: floatPtr(120)},
		{Start: &end, DurationS: floatPtr(45.5), Length: intPtr(12)},
	}})
	gapped.Report.Add(Defect{Kind: KindZoneSummary, Message: "hr data missing for zone QC"})

	require.NoError(t, s.SaveFileResult(ctx, run.ID, withMetrics))
	require.NoError(t, s.SaveFileResult(ctx, run.ID, gapped))

	got, err := s.ListFileResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// ordered by path
	assert.Equal(t, withMetrics.Path, got[0].Path)
	assert.Equal(t, gapped.Path, got[1].Path)

	assert.True(t, got[0].Supervised)
	assert.Equal(t, 2700, got[0].SampleCount)
	assert.Equal(t, []DefectKind{KindDurationTrim, KindBoundedShort}, got[0].Report.Kinds())
	require.NotNil(t, got[0].Metrics)
	assert.Equal(t, *withMetrics.Metrics.ZoneCompliance, *got[0].Metrics.ZoneCompliance)
	assert.Equal(t, 0.25, *got[0].Metrics.MAZD)
	assert.Nil(t, got[0].Metrics.TRIMP)
	assert.Equal(t, 600.0, got[0].Metrics.LongestBoundedBoutS)

	trim, ok := got[0].Report.Get(KindDurationTrim)
	require.True(t, ok)
	require.Len(t, trim.Details, 1)
	assert.True(t, trim.Details[0].Start.Equal(start))
	assert.True(t, trim.Details[0].End.Equal(end))

	assert.False(t, got[1].Supervised)
	assert.Nil(t, got[1].Metrics)
	assert.Equal(t, []DefectKind{KindMissing, KindZoneSummary}, got[1].Report.Kinds())
	missing, _ := got[1].Report.Get(KindMissing)
	require.Len(t, missing.Details, 2)
	assert.Nil(t, missing.Details[0].Length)
	assert.Nil(t, missing.Details[1].End)
	assert.Equal(t, 12, *missing.Details[1].Length)
	assert.Equal(t, 45.5, *missing.Details[1].DurationS)

	counts, err := s.CountDefects(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[DefectKind]int{
		KindDurationTrim: 1,
		KindBoundedShort: 1,
		KindMissing:      1,
		KindZoneSummary:  1,
	}, counts)
}

func TestSaveFileResult_Replaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "/data", 1)
	require.NoError(t, err)

	r := FileResult{Path: "/data/a.csv", Group: "supervised", Subject: "sub1"}
	r.Report.Add(Defect{Kind: KindNaN, Message: "more than 30 NaNs in a row", Details: []DefectDetail{{Length: intPtr(40)}}})
	require.NoError(t, s.SaveFileResult(ctx, run.ID, r))

	var again FileResult
	again.Path = r.Path
	again.Group = r.Group
	again.Subject = r.Subject
	again.Report.Add(Defect{Kind: KindError, Message: "boom"})
	require.NoError(t, s.SaveFileResult(ctx, run.ID, again))

	got, err := s.ListFileResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []DefectKind{KindError}, got[0].Report.Kinds())
}

func TestSaveFileResult_UnknownRun(t *testing.T) {
	s := setupTestStore(t)

	err := s.SaveFileResult(context.Background(), "no-such-run", FileResult{Path: "/x.csv"})
	assert.Error(t, err, "foreign key must reject results without a run")
}

func TestErrorReport(t *testing.T) {
	var r ErrorReport
	assert.Equal(t, 0, r.Len())

	r.Add(Defect{Kind: KindMissing, Message: "first"})
	r.Add(Defect{Kind: KindNaN, Message: "nan"})
	r.Add(Defect{Kind: KindMissing, Message: "second"})

	assert.Equal(t, []DefectKind{KindMissing, KindNaN}, r.Kinds())
	d, ok := r.Get(KindMissing)
	require.True(t, ok)
	assert.Equal(t, "second", d.Message)
	assert.False(t, r.Has(KindError))

	defects := r.Defects()
	defects[0].Message = "mutated"
	d, _ = r.Get(KindMissing)
	assert.Equal(t, "second", d.Message)
}
