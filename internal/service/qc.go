package service

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"hrqc/internal/analysis"
	"hrqc/internal/protocol"
	"hrqc/internal/store"
)

// SessionInput is everything the QC pipeline needs for one recording
type SessionInput struct {
	Path       string
	Samples    []analysis.Sample
	Week       int
	Supervised bool
	Zones      map[int]analysis.Range
	RestMax    analysis.RestMax
}

// Options tunes RunSession
type Options struct {
	MaxSessionMinutes int // 0 means DefaultMaxSessionMinutes
	Logger            *slog.Logger
}

// SessionResult is the outcome of one pass of the QC pipeline
type SessionResult struct {
	Report  store.ErrorReport
	Metrics *store.SessionMetrics // nil when zone analysis did not complete
	Stage   Stage                 // last stage reached before Done
	Err     error                 // *StructuralError when a stage panicked
}

// session carries the state threaded through the pipeline stages
type session struct {
	in     SessionInput
	opts   Options
	logger *slog.Logger
	result SessionResult

	samples []analysis.Sample // normalized, trimmed
	week    protocol.Week
	zctx    *analysis.ZoneContext
	times   analysis.ZoneTimes
	longest float64
	met     bool
}

// RunSession runs data-quality checks and zone metrics for one recording.
// Quality findings are recorded in the report and never returned as errors.
func RunSession(in SessionInput, opts Options) SessionResult {
	if opts.MaxSessionMinutes <= 0 {
		opts.MaxSessionMinutes = DefaultMaxSessionMinutes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &session{
		in:     in,
		opts:   opts,
		logger: logger.With("file", in.Path),
	}
	s.run()
	return s.result
}

type step struct {
	stage Stage
	fn    func() bool
}

func (s *session) run() {
	s.runSteps([]step{
		{StageStart, s.start},
		{StageDurationTrim, s.durationTrim},
		{StageGapOrNaNCheck, s.gapOrNaNCheck},
		{StageZoneContextBuild, s.zoneContextBuild},
		{StageClassify, s.classify},
		{StageBoutAnalysis, s.boutAnalysis},
		{StageLoadIndices, s.loadIndices},
	})
}

// runSteps runs steps in order until one short-circuits. A panic ends the
// pipeline with a StructuralError naming the stage that panicked.
func (s *session) runSteps(steps []step) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during qc", "stage", s.result.Stage, "panic", r, "stack", string(debug.Stack()))
			s.result.Metrics = nil
			s.result.Err = &StructuralError{File: s.in.Path, Stage: s.result.Stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	for _, st := range steps {
		s.result.Stage = st.stage
		s.logger.Debug("qc stage", "stage", st.stage)
		if !st.fn() {
			s.logger.Debug("qc short-circuit", "stage", st.stage)
			return
		}
	}
	s.result.Stage = StageDone
}

// shortCircuit ends the pipeline with a single zone summary and no metrics
func (s *session) shortCircuit(message string) bool {
	s.result.Report.Add(store.Defect{Kind: store.KindZoneSummary, Message: message})
	s.result.Metrics = nil
	return false
}

func (s *session) start() bool {
	if len(s.in.Samples) == 0 {
		return s.shortCircuit(MsgHRMissing)
	}
	return true
}

func (s *session) durationTrim() bool {
	trimmed, info := analysis.Trim(s.in.Samples, s.opts.MaxSessionMinutes)
	s.samples = trimmed

	if info.Trimmed() {
		cut := info.CutSeconds
		end := info.OriginalEnd
		s.result.Report.Add(store.Defect{
			Kind:    store.KindDurationTrim,
			Message: fmt.Sprintf(MsgDurationTrim, s.opts.MaxSessionMinutes),
			Details: []store.DefectDetail{{Start: info.CutStart, End: &end, DurationS: &cut}},
		})
		s.logger.Info("recording trimmed", "cut_seconds", cut)
	}
	return true
}

// gapOrNaNCheck reports missing-signal gaps; NaN runs are only checked when there are none
func (s *session) gapOrNaNCheck() bool {
	if gaps := analysis.MissingGaps(s.samples); len(gaps) > 0 {
		details := make([]store.DefectDetail, len(gaps))
		for i, g := range gaps {
			details[i] = store.DefectDetail{
				Start:     timePtr(g.Start),
				End:       timePtr(g.End),
				DurationS: floatPtr(g.Duration.Seconds()),
			}
		}
		s.result.Report.Add(store.Defect{Kind: store.KindMissing, Message: MsgMissing, Details: details})
		return true
	}

	if runs := analysis.NaNRuns(s.samples); len(runs) > 0 {
		details := make([]store.DefectDetail, len(runs))
		for i, r := range runs {
			length := r.Length
			details[i] = store.DefectDetail{
				Start:     timePtr(r.Start),
				End:       timePtr(r.End),
				DurationS: floatPtr(r.Duration.Seconds()),
				Length:    &length,
			}
		}
		s.result.Report.Add(store.Defect{Kind: store.KindNaN, Message: MsgNaNRun, Details: details})
	}
	return true
}

func (s *session) zoneContextBuild() bool {
	week, err := protocol.Lookup(s.in.Week, s.in.Supervised)
	if err != nil {
		return s.shortCircuit(err.Error())
	}
	s.week = week

	bounds, err := analysis.NewZoneBoundaries(s.in.Zones)
	if err != nil {
		return s.shortCircuit(fmt.Sprintf("zone bounds unavailable: %v", err))
	}

	windowed := s.samples
	if s.in.Supervised {
		windowed = analysis.CapWindow(s.samples, analysis.SupervisedWindow)
		if cmp := analysis.CompareWindows(s.samples, analysis.SupervisedWindow); !cmp.Agree() {
			s.logger.Warn("supervised windows disagree",
				"cap_span", cmp.CapSpan, "elapsed_span", cmp.ElapsedSpan)
		}
	}
	if !hasBPM(windowed) {
		return s.shortCircuit(MsgHRMissing)
	}

	zctx, err := analysis.NewZoneContext(windowed, bounds, week.Zones)
	if err != nil {
		return s.shortCircuit(fmt.Sprintf("zone bounds unavailable: %v", err))
	}
	s.zctx = zctx
	return true
}

func (s *session) classify() bool {
	categories := analysis.Classify(s.zctx)
	s.times = analysis.SummarizeZones(s.zctx, categories)
	return true
}

func (s *session) boutAnalysis() bool {
	s.longest = analysis.LongestBoundedBout(s.zctx)
	s.met = analysis.BoundedMet(s.longest, s.week.BoundedMin)

	s.result.Report.Add(store.Defect{
		Kind: store.KindZoneSummary,
		Message: fmt.Sprintf(MsgZoneSummary, s.week.Number,
			formatSeconds(s.times.InAllowed), formatSeconds(s.times.Above), formatSeconds(s.times.Below),
			formatSeconds(s.longest), s.met),
	})
	if !s.met {
		s.result.Report.Add(store.Defect{
			Kind:    store.KindBoundedShort,
			Message: fmt.Sprintf(MsgBoundedShort, formatSeconds(s.longest), s.week.BoundedMin),
		})
	}
	return true
}

func (s *session) loadIndices() bool {
	metrics := &store.SessionMetrics{
		Week:                s.week.Number,
		TimeInAllowedS:      s.times.InAllowed,
		TimeAboveS:          s.times.Above,
		TimeBelowS:          s.times.Below,
		LongestBoundedBoutS: s.longest,
		BoundedMet:          s.met,
		ZoneCompliance:      analysis.ZoneCompliance(s.times),
		MAZD:                analysis.MAZD(s.samples, s.zctx.Bounds, s.week.Zones, s.in.Supervised),
	}

	trimp, err := analysis.TRIMP(analysis.BPMValues(s.zctx.Samples), s.zctx.Durations,
		s.in.RestMax.RestingHR, s.in.RestMax.MaxHR)
	if err != nil {
		// ErrRestMaxMissing or ErrNoHeartRateReserve; trimp stays nil
		s.result.Report.Add(store.Defect{Kind: store.KindRestMaxMissing, Message: err.Error()})
	} else {
		metrics.TRIMP = &trimp
	}

	s.result.Metrics = metrics
	return true
}

func hasBPM(samples []analysis.Sample) bool {
	for _, s := range samples {
		if s.HasBPM() {
			return true
		}
	}
	return false
}

// formatSeconds renders a duration in seconds as e.g. 25m30s
func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}

func floatPtr(f float64) *float64 {
	return &f
}

func timePtr(t time.Time) *time.Time {
	return &t
}
