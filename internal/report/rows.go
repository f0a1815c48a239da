// Package report flattens per-file QC results into tabular outputs: the defect
// and zone CSVs, parquet exports and the terminal summary.
package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"hrqc/internal/store"
)

// QCRow is one line of the defect report
type QCRow struct {
	Group     string
	Subject   string
	Week      *int // nil when the file name had no week
	Session   string
	ErrorType string
	Message   string
	Start     *time.Time
	End       *time.Time
	DurationS *float64
	Length    *int
}

// ZoneRow is one line of the zone metrics report
type ZoneRow struct {
	Group               string
	Subject             string
	Week                int
	Session             string
	TimeInAllowedS      float64
	TimeAboveS          float64
	TimeBelowS          float64
	LongestBoundedBoutS float64
	BoundedMet          bool
	ZoneCompliance      *float64
	MAZD                *float64
	TRIMP               *float64
}

// reported reports whether a defect kind belongs in the defect report.
// Zone summaries are left out; bounded_short is a defect in its own right.
func reported(kind store.DefectKind) bool {
	return !strings.HasPrefix(string(kind), "zone")
}

// QCRows returns one row per defect detail, or one row for a defect without
// details, sorted by group, subject, week, session, error type, start and end.
func QCRows(results []store.FileResult) []QCRow {
	var rows []QCRow
	for _, r := range results {
		var week *int
		if r.Week > 0 {
			w := r.Week
			week = &w
		}

		for _, d := range r.Report.Defects() {
			if !reported(d.Kind) {
				continue
			}
			base := QCRow{
				Group:     r.Group,
				Subject:   r.Subject,
				Week:      week,
				Session:   r.Session,
				ErrorType: string(d.Kind),
				Message:   d.Message,
			}
			if len(d.Details) == 0 {
				rows = append(rows, base)
				continue
			}
			for _, detail := range d.Details {
				row := base
				row.Start = detail.Start
				row.End = detail.End
				row.DurationS = detail.DurationS
				row.Length = detail.Length
				rows = append(rows, row)
			}
		}
	}

	slices.SortStableFunc(rows, func(a, b QCRow) int {
		return cmp.Or(
			cmp.Compare(a.Group, b.Group),
			cmp.Compare(a.Subject, b.Subject),
			compareNilLast(a.Week, b.Week, cmp.Compare[int]),
			cmp.Compare(a.Session, b.Session),
			cmp.Compare(a.ErrorType, b.ErrorType),
			compareNilLast(a.Start, b.Start, time.Time.Compare),
			compareNilLast(a.End, b.End, time.Time.Compare),
		)
	})
	return rows
}

// ZoneRows returns one row per file with metrics, sorted by group, subject, week and session
func ZoneRows(results []store.FileResult) []ZoneRow {
	var rows []ZoneRow
	for _, r := range results {
		m := r.Metrics
		if m == nil {
			continue
		}
		rows = append(rows, ZoneRow{
			Group:               r.Group,
			Subject:             r.Subject,
			Week:                m.Week,
			Session:             r.Session,
			TimeInAllowedS:      m.TimeInAllowedS,
			TimeAboveS:          m.TimeAboveS,
			TimeBelowS:          m.TimeBelowS,
			LongestBoundedBoutS: m.LongestBoundedBoutS,
			BoundedMet:          m.BoundedMet,
			ZoneCompliance:      m.ZoneCompliance,
			MAZD:                m.MAZD,
			TRIMP:               m.TRIMP,
		})
	}

	slices.SortStableFunc(rows, func(a, b ZoneRow) int {
		return cmp.Or(
			cmp.Compare(a.Group, b.Group),
			cmp.Compare(a.Subject, b.Subject),
			cmp.Compare(a.Week, b.Week),
			cmp.Compare(a.Session, b.Session),
		)
	})
	return rows
}

// compareNilLast orders present values with compare and puts nil after them
func compareNilLast[T any](a, b *T, compare func(T, T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compare(*a, *b)
}

// clock formats a wall-clock time as HH:MM:SS
func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.TimeOnly)
}
