package analysis

import (
	"math"
	"sort"
	"time"
)

// Sample is a single heart-rate reading from a recording
type Sample struct {
	Time time.Time // wall clock of day; date part is only used for rollover offsets
	BPM  *float64  // nullable
}

// HasBPM reports whether the sample carries a heart-rate value
func (s Sample) HasBPM() bool {
	return s.BPM != nil
}

const day = 24 * time.Hour

var nan = math.NaN()

// AdjustRollover returns the sample times with a day added every time the clock
// runs backwards, so 23:59 -> 00:01 becomes a two minute step.
// Offsets accumulate in recording order.
func AdjustRollover(samples []Sample) []time.Time {
	adjusted := make([]time.Time, len(samples))
	var offset time.Duration
	for i, s := range samples {
		if i > 0 && s.Time.Before(samples[i-1].Time) {
			offset += day
		}
		adjusted[i] = s.Time.Add(offset)
	}
	return adjusted
}

// Normalize applies rollover correction and sorts samples by corrected time.
// The input slice is not modified.
func Normalize(samples []Sample) []Sample {
	if len(samples) == 0 {
		return nil
	}

	adjusted := AdjustRollover(samples)
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample{Time: adjusted[i], BPM: s.BPM}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// Durations returns the forward gap in seconds from each sample to the next.
// The last sample has no successor and gets the median of the observed gaps.
// Samples must already be normalized.
func Durations(samples []Sample) []float64 {
	if len(samples) == 0 {
		return nil
	}

	durations := make([]float64, len(samples))
	for i := 0; i < len(samples)-1; i++ {
		gap := samples[i+1].Time.Sub(samples[i].Time).Seconds()
		if gap < 0 {
			gap = 0
		}
		durations[i] = gap
	}
	durations[len(samples)-1] = median(durations[:len(samples)-1])
	return durations
}

// Span returns the first and last sample times and the elapsed time between them
func Span(samples []Sample) (start, end time.Time, elapsed time.Duration) {
	if len(samples) == 0 {
		return time.Time{}, time.Time{}, 0
	}
	start = samples[0].Time
	end = samples[len(samples)-1].Time
	return start, end, end.Sub(start)
}

// BPMValues returns the bpm of each sample with NaN standing in for missing readings
func BPMValues(samples []Sample) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		if s.BPM == nil {
			values[i] = nan
			continue
		}
		values[i] = *s.BPM
	}
	return values
}

// median returns the median of values, averaging the middle pair for even lengths
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
