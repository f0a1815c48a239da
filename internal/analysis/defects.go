package analysis

import (
	"sort"
	"time"
)

const (
	// GapThreshold is the longest silence between valid readings that is not reported
	GapThreshold = 30 * time.Second

	// NaNRunThreshold is the longest run of missing readings that is not reported
	NaNRunThreshold = 30
)

// MissingGap is a stretch without any valid reading, [Start, End)
type MissingGap struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// NaNRun is a run of consecutive samples without a heart-rate value
type NaNRun struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Length   int // samples
}

type interval struct {
	from, to time.Time
}

// MissingGaps finds every gap longer than GapThreshold between valid readings
func MissingGaps(samples []Sample) []MissingGap {
	var valid []time.Time
	for _, s := range samples {
		if s.HasBPM() {
			valid = append(valid, s.Time)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Before(valid[j]) })

	if len(valid) < 2 {
		return nil
	}

	steps := make([]interval, 0, len(valid)-1)
	for i := 1; i < len(valid); i++ {
		steps = append(steps, interval{from: valid[i-1], to: valid[i]})
	}

	grouped := ReduceRuns(steps,
		func(iv interval) bool { return iv.to.Sub(iv.from) > GapThreshold },
		func(r Run[bool]) bool { return r.Key },
		func(_ Run[bool], members []interval) []MissingGap {
			gaps := make([]MissingGap, 0, len(members))
			for _, iv := range members {
				gaps = append(gaps, MissingGap{Start: iv.from, End: iv.to, Duration: iv.to.Sub(iv.from)})
			}
			return gaps
		},
	)

	var gaps []MissingGap
	for _, g := range grouped {
		gaps = append(gaps, g...)
	}
	return gaps
}

// NaNRuns finds runs of more than NaNRunThreshold consecutive missing readings.
// It looks at the raw series, nulls included.
func NaNRuns(samples []Sample) []NaNRun {
	return ReduceRuns(samples,
		func(s Sample) bool { return !s.HasBPM() },
		func(r Run[bool]) bool { return r.Key && r.Len() > NaNRunThreshold },
		func(r Run[bool], members []Sample) NaNRun {
			start := members[0].Time
			end := members[len(members)-1].Time
			return NaNRun{Start: start, End: end, Duration: end.Sub(start), Length: r.Len()}
		},
	)
}
