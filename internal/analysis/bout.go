package analysis

import "gonum.org/v1/gonum/floats"

type boutSample struct {
	good     bool
	duration float64
}

// LongestBoundedBout returns the longest continuous time, in seconds, that the
// heart rate stayed at or above the lowest allowed zone floor. Going above the
// ceiling does not break a bout; dropping below the floor or losing signal does.
func LongestBoundedBout(ctx *ZoneContext) float64 {
	items := make([]boutSample, len(ctx.Samples))
	for i, s := range ctx.Samples {
		items[i] = boutSample{
			good:     s.BPM != nil && *s.BPM >= ctx.Lowest,
			duration: ctx.Durations[i],
		}
	}

	bouts := ReduceRuns(items,
		func(b boutSample) bool { return b.good },
		func(r Run[bool]) bool { return r.Key },
		func(_ Run[bool], members []boutSample) float64 {
			durations := make([]float64, len(members))
			for i, m := range members {
				durations[i] = m.duration
			}
			return floats.Sum(durations)
		},
	)

	if len(bouts) == 0 {
		return 0
	}
	return floats.Max(bouts)
}

// BoundedMet reports whether the longest bout satisfies the prescribed bounded minutes
func BoundedMet(longestSeconds float64, boundedMinutes int) bool {
	return longestSeconds >= float64(boundedMinutes)*60
}
