package store

import "time"

// DefectKind identifies a category of data-quality finding
type DefectKind string

const (
	KindMissing        DefectKind = "missing"
	KindNaN            DefectKind = "nan"
	KindDurationTrim   DefectKind = "duration_trim"
	KindZoneSummary    DefectKind = "zone_summary"
	KindBoundedShort   DefectKind = "bounded_short"
	KindRestMaxMissing DefectKind = "rest_max_missing"
	KindDuration       DefectKind = "duration"
	KindWeekParse      DefectKind = "week_parse"
	KindError          DefectKind = "error"
)

// DefectDetail is one row of supporting data for a defect. Any field may be absent.
type DefectDetail struct {
	Start     *time.Time
	End       *time.Time
	DurationS *float64
	Length    *int // samples
}

// Defect is a single finding with a human-readable message
type Defect struct {
	Kind    DefectKind
	Message string
	Details []DefectDetail
}

// ErrorReport is the ordered set of defects for one recording.
// Each kind appears at most once; re-adding a kind replaces it in place.
type ErrorReport struct {
	defects []Defect
}

// Add records a defect
func (r *ErrorReport) Add(d Defect) {
	for i := range r.defects {
		if r.defects[i].Kind == d.Kind {
			r.defects[i] = d
			return
		}
	}
	r.defects = append(r.defects, d)
}

// Get returns the defect of a kind
func (r ErrorReport) Get(kind DefectKind) (Defect, bool) {
	for _, d := range r.defects {
		if d.Kind == kind {
			return d, true
		}
	}
	return Defect{}, false
}

// Has reports whether a defect of kind was recorded
func (r ErrorReport) Has(kind DefectKind) bool {
	_, ok := r.Get(kind)
	return ok
}

// Defects returns the defects in insertion order
func (r ErrorReport) Defects() []Defect {
	return append([]Defect(nil), r.defects...)
}

// Kinds returns the defect kinds in insertion order
func (r ErrorReport) Kinds() []DefectKind {
	kinds := make([]DefectKind, len(r.defects))
	for i, d := range r.defects {
		kinds[i] = d.Kind
	}
	return kinds
}

// Len returns the number of defects
func (r ErrorReport) Len() int {
	return len(r.defects)
}

// SessionMetrics holds the zone and load metrics of a session
type SessionMetrics struct {
	Week                int
	TimeInAllowedS      float64
	TimeAboveS          float64
	TimeBelowS          float64
	LongestBoundedBoutS float64
	BoundedMet          bool
	ZoneCompliance      *float64
	MAZD                *float64
	TRIMP               *float64
}

// FileResult is the QC outcome for one recording
type FileResult struct {
	Path        string
	Group       string
	Subject     string
	Week        int // 0 when the file name has no week
	Session     string
	Supervised  bool
	SampleCount int
	Report      ErrorReport
	Metrics     *SessionMetrics // nil when zone analysis did not run
}

// Run is one batch QC execution
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Root       string
	FileCount  int
}
