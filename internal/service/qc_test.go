package service

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrqc/internal/analysis"
	"hrqc/internal/store"
)

var baseTime = time.Date(1900, 1, 1, 9, 0, 0, 0, time.UTC)

// cadence stays within analysis.GapThreshold so fixtures carry no missing defect
const cadence = 30 * time.Second

var testZones = map[int]analysis.Range{
	1: {Start: 100, End: 114},
	2: {Start: 115, End: 129},
	3: {Start: 130, End: 144},
	4: {Start: 145, End: 159},
	5: {Start: 160, End: 175},
}

func restMax(rest, max float64) analysis.RestMax {
	return analysis.RestMax{RestingHR: &rest, MaxHR: &max}
}

// steady returns n samples step apart, all at bpm
func steady(n int, step time.Duration, bpm float64) []analysis.Sample {
	samples := make([]analysis.Sample, n)
	for i := range samples {
		v := bpm
		samples[i] = analysis.Sample{Time: baseTime.Add(time.Duration(i) * step), BPM: &v}
	}
	return samples
}

// blank clears the bpm of samples[from:to]
func blank(samples []analysis.Sample, from, to int) []analysis.Sample {
	for i := from; i < to; i++ {
		samples[i].BPM = nil
	}
	return samples
}

func TestRunSession_ShortCircuits(t *testing.T) {
	tests := []struct {
		name    string
		in      SessionInput
		message string
		stage   Stage
	}{
		{
			name:    "no samples",
			in:      SessionInput{Week: 7, Zones: testZones},
			message: MsgHRMissing,
			stage:   StageStart,
		},
		{
			name:    "unknown supervised week",
			in:      SessionInput{Samples: steady(10, cadence, 150), Week: 9, Supervised: true, Zones: testZones},
			message: "no supervised plan for week 9",
			stage:   StageZoneContextBuild,
		},
		{
			name:    "unknown unsupervised week",
			in:      SessionInput{Samples: steady(10, cadence, 150), Week: 2, Zones: testZones},
			message: "no unsupervised plan for week 2",
			stage:   StageZoneContextBuild,
		},
		{
			name: "overlapping zones",
			in: SessionInput{Samples: steady(10, cadence, 150), Week: 7, Zones: map[int]analysis.Range{
				1: {Start: 100, End: 120}, 2: {Start: 115, End: 129}, 3: {Start: 130, End: 144},
				4: {Start: 145, End: 159}, 5: {Start: 160, End: 175},
			}},
			message: "zone bounds unavailable",
			stage:   StageZoneContextBuild,
		},
		{
			name:    "missing zones",
			in:      SessionInput{Samples: steady(10, cadence, 150), Week: 7},
			message: "zone bounds unavailable",
			stage:   StageZoneContextBuild,
		},
		{
			name:    "all readings null",
			in:      SessionInput{Samples: blank(steady(10, cadence, 150), 0, 10), Week: 7, Zones: testZones},
			message: MsgHRMissing,
			stage:   StageZoneContextBuild,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunSession(tt.in, Options{})

			assert.Nil(t, got.Metrics)
			assert.Equal(t, tt.stage, got.Stage)
			assert.Equal(t, []store.DefectKind{store.KindZoneSummary}, got.Report.Kinds())
			d, _ := got.Report.Get(store.KindZoneSummary)
			assert.Contains(t, d.Message, tt.message)
		})
	}
}

func TestRunSession_Unsupervised(t *testing.T) {
	got := RunSession(SessionInput{
		Path:    "sub1001_wk7_ses1.csv",
		Samples: steady(120, cadence, 150),
		Week:    7,
		Zones:   testZones,
		RestMax: restMax(60, 180),
	}, Options{MaxSessionMinutes: 60})

	assert.Equal(t, StageDone, got.Stage)
	assert.NoError(t, got.Err)
	assert.Equal(t, []store.DefectKind{store.KindZoneSummary}, got.Report.Kinds())

	summary, _ := got.Report.Get(store.KindZoneSummary)
	assert.Equal(t, "week 7: 1h0m0s in allowed zones, 0s above, 0s below, longest bounded bout 1h0m0s, bounded_met=true",
		summary.Message)

	m := got.Metrics
	require.NotNil(t, m)
	assert.Equal(t, 7, m.Week)
	assert.Equal(t, 3600.0, m.TimeInAllowedS)
	assert.Equal(t, 3600.0, m.LongestBoundedBoutS)
	assert.True(t, m.BoundedMet)
	require.NotNil(t, m.ZoneCompliance)
	assert.Equal(t, 1.0, *m.ZoneCompliance)
	require.NotNil(t, m.MAZD)
	assert.Equal(t, 0.0, *m.MAZD)
	require.NotNil(t, m.TRIMP)
	assert.InDelta(t, 121.55603952950071, *m.TRIMP, 1e-9)
}

func TestRunSession_SupervisedCap(t *testing.T) {
	// 0..60 minutes at 150 bpm; week 1 allows zones 1-3 so every sample is above
	got := RunSession(SessionInput{
		Samples:    steady(121, cadence, 150),
		Week:       1,
		Supervised: true,
		Zones:      testZones,
		RestMax:    restMax(60, 180),
	}, Options{})

	require.Equal(t, StageDone, got.Stage)
	assert.Equal(t, []store.DefectKind{store.KindZoneSummary}, got.Report.Kinds())

	m := got.Metrics
	require.NotNil(t, m)
	// 91 samples kept by the 45 minute cap, 30s each
	assert.Equal(t, 2730.0, m.TimeAboveS)
	assert.Equal(t, 0.0, m.TimeInAllowedS)
	assert.Equal(t, 0.0, m.TimeBelowS)
	assert.Equal(t, 2730.0, m.LongestBoundedBoutS)
	assert.True(t, m.BoundedMet)
	assert.Equal(t, 0.0, *m.ZoneCompliance)
	assert.Equal(t, 1.0, *m.MAZD, "zone 4 is one away from allowed zone 3")
	assert.InDelta(t, 92.1799966432047, *m.TRIMP, 1e-9)
}

func TestRunSession_DurationTrim(t *testing.T) {
	got := RunSession(SessionInput{
		Samples: steady(141, cadence, 150),
		Week:    7,
		Zones:   testZones,
		RestMax: restMax(60, 180),
	}, Options{MaxSessionMinutes: 60})

	assert.Equal(t, []store.DefectKind{store.KindDurationTrim, store.KindZoneSummary}, got.Report.Kinds())

	trim, _ := got.Report.Get(store.KindDurationTrim)
	assert.Equal(t, "recording trimmed to 60 minutes", trim.Message)
	require.Len(t, trim.Details, 1)
	detail := trim.Details[0]
	assert.True(t, detail.Start.Equal(baseTime.Add(60*time.Minute)))
	assert.True(t, detail.End.Equal(baseTime.Add(70*time.Minute)))
	assert.Equal(t, 600.0, *detail.DurationS)

	require.NotNil(t, got.Metrics)
	assert.Equal(t, 121*30.0, got.Metrics.TimeInAllowedS)
}

func TestRunSession_MinuteCadenceIsMissing(t *testing.T) {
	// every one minute step is a silence over the 30s limit
	got := RunSession(SessionInput{
		Samples: steady(60, time.Minute, 150),
		Week:    7,
		Zones:   testZones,
		RestMax: restMax(60, 180),
	}, Options{})

	assert.Equal(t, []store.DefectKind{store.KindMissing, store.KindZoneSummary}, got.Report.Kinds())
	missing, _ := got.Report.Get(store.KindMissing)
	assert.Len(t, missing.Details, 59)
	assert.Equal(t, 60.0, *missing.Details[0].DurationS)

	require.NotNil(t, got.Metrics, "gaps are reported, not fatal")
	assert.Equal(t, 3600.0, got.Metrics.TimeInAllowedS)
}

func TestRunSession_GapSuppressesNaNRun(t *testing.T) {
	// one sample per second; 41 nulls make both a 42s gap and a NaN run
	samples := blank(steady(120, time.Second, 150), 10, 51)

	got := RunSession(SessionInput{Samples: samples, Week: 7, Zones: testZones, RestMax: restMax(60, 180)}, Options{})

	assert.True(t, got.Report.Has(store.KindMissing))
	assert.False(t, got.Report.Has(store.KindNaN))

	missing, _ := got.Report.Get(store.KindMissing)
	assert.Equal(t, MsgMissing, missing.Message)
	require.Len(t, missing.Details, 1)
	assert.True(t, missing.Details[0].Start.Equal(baseTime.Add(9*time.Second)))
	assert.True(t, missing.Details[0].End.Equal(baseTime.Add(51*time.Second)))
	assert.Equal(t, 42.0, *missing.Details[0].DurationS)
	assert.Nil(t, missing.Details[0].Length)
}

func TestRunSession_NaNRunWithoutGap(t *testing.T) {
	// half-second cadence: 40 nulls leave only a 20.5s gap between readings
	samples := blank(steady(200, 500*time.Millisecond, 150), 20, 60)

	got := RunSession(SessionInput{Samples: samples, Week: 7, Zones: testZones, RestMax: restMax(60, 180)}, Options{})

	assert.False(t, got.Report.Has(store.KindMissing))
	nan, ok := got.Report.Get(store.KindNaN)
	require.True(t, ok)
	assert.Equal(t, MsgNaNRun, nan.Message)
	require.Len(t, nan.Details, 1)
	assert.Equal(t, 40, *nan.Details[0].Length)
	assert.Equal(t, 19.5, *nan.Details[0].DurationS)
}

func TestRunSession_BoundedShort(t *testing.T) {
	// 120 bpm is below zone 3, the floor of week 7
	got := RunSession(SessionInput{
		Samples: steady(80, cadence, 120),
		Week:    7,
		Zones:   testZones,
		RestMax: restMax(60, 180),
	}, Options{})

	if diff := cmp.Diff([]store.DefectKind{store.KindZoneSummary, store.KindBoundedShort}, got.Report.Kinds()); diff != "" {
		t.Errorf("defect kinds mismatch (-want +got):\n%s", diff)
	}
	short, _ := got.Report.Get(store.KindBoundedShort)
	assert.Equal(t, "longest bounded bout 0s is shorter than the prescribed 30 minutes", short.Message)

	require.NotNil(t, got.Metrics)
	assert.False(t, got.Metrics.BoundedMet)
	assert.Equal(t, 2400.0, got.Metrics.TimeBelowS)
	assert.Equal(t, 0.0, *got.Metrics.ZoneCompliance)
}

func TestRunSession_RestMaxMissing(t *testing.T) {
	tests := []struct {
		name    string
		restMax analysis.RestMax
		message string
	}{
		{"both missing", analysis.RestMax{}, "resting or max HR missing"},
		{"max missing", analysis.RestMax{RestingHR: floatPtr(60)}, "resting or max HR missing"},
		{"no reserve", restMax(180, 180), "max HR must exceed resting HR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunSession(SessionInput{
				Samples: steady(120, cadence, 150),
				Week:    7,
				Zones:   testZones,
				RestMax: tt.restMax,
			}, Options{})

			require.NotNil(t, got.Metrics)
			assert.Nil(t, got.Metrics.TRIMP)
			assert.NotNil(t, got.Metrics.MAZD)

			d, ok := got.Report.Get(store.KindRestMaxMissing)
			require.True(t, ok)
			assert.Contains(t, d.Message, tt.message)
		})
	}
}

func TestSessionRunSteps_Panic(t *testing.T) {
	s := &session{
		in:     SessionInput{Path: "sub1001_wk7_ses1.csv"},
		logger: slog.New(slog.DiscardHandler),
	}
	s.result.Metrics = &store.SessionMetrics{}

	var ran []Stage
	s.runSteps([]step{
		{StageStart, func() bool { ran = append(ran, StageStart); return true }},
		{StageClassify, func() bool { panic("index out of range") }},
		{StageLoadIndices, func() bool { ran = append(ran, StageLoadIndices); return true }},
	})

	assert.Equal(t, []Stage{StageStart}, ran)
	assert.Equal(t, StageClassify, s.result.Stage)
	assert.Nil(t, s.result.Metrics)

	var serr *StructuralError
	require.ErrorAs(t, s.result.Err, &serr)
	assert.Equal(t, StageClassify, serr.Stage)
	assert.Equal(t, "sub1001_wk7_ses1.csv (classify): panic: index out of range", serr.Error())
}

func TestRunSession_Idempotent(t *testing.T) {
	in := SessionInput{
		Samples:    blank(steady(90, 30*time.Second, 140), 5, 8),
		Week:       3,
		Supervised: true,
		Zones:      testZones,
		RestMax:    restMax(55, 175),
	}

	first := RunSession(in, Options{})
	second := RunSession(in, Options{})

	if diff := cmp.Diff(first.Metrics, second.Metrics); diff != "" {
		t.Errorf("metrics differ between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Report.Kinds(), second.Report.Kinds())
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0s"},
		{59.4, "59s"},
		{90, "1m30s"},
		{2700, "45m0s"},
		{3600, "1h0m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := formatSeconds(tt.seconds); got != tt.expected {
				t.Errorf("formatSeconds(%v) = %q, want %q", tt.seconds, got, tt.expected)
			}
		})
	}
}
