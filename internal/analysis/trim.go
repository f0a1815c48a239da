package analysis

import "time"

// SupervisedWindow is the longest stretch of a supervised session that enters zone analysis
const SupervisedWindow = 45 * time.Minute

// TrimInfo describes what Trim removed from a recording
type TrimInfo struct {
	CutStart    *time.Time // nil when nothing was cut
	OriginalEnd time.Time
	CutSeconds  float64
}

// Trimmed reports whether any data was removed
func (t TrimInfo) Trimmed() bool {
	return t.CutSeconds > 0
}

// Trim keeps the first maxMinutes of a recording.
// Samples are normalized first; a recording at or under the limit is returned whole.
func Trim(samples []Sample, maxMinutes int) ([]Sample, TrimInfo) {
	normalized := Normalize(samples)
	if len(normalized) == 0 {
		return normalized, TrimInfo{}
	}

	start, end, span := Span(normalized)
	allowed := time.Duration(maxMinutes) * time.Minute
	if span <= allowed {
		return normalized, TrimInfo{OriginalEnd: end}
	}

	cutoff := start.Add(allowed)
	kept := make([]Sample, 0, len(normalized))
	for _, s := range normalized {
		if s.Time.After(cutoff) {
			break
		}
		kept = append(kept, s)
	}

	return kept, TrimInfo{
		CutStart:    &cutoff,
		OriginalEnd: end,
		CutSeconds:  end.Sub(cutoff).Seconds(),
	}
}

// CapWindow keeps the first limit of a normalized series. When the cutoff lands
// between two samples, the last kept sample is repeated at the cutoff instant so
// the preceding gap ends exactly at the window edge.
func CapWindow(samples []Sample, limit time.Duration) []Sample {
	if len(samples) == 0 {
		return nil
	}

	cutoff := samples[0].Time.Add(limit)
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Time.After(cutoff) {
			out = append(out, s)
			continue
		}
		if n := len(out); n > 0 && out[n-1].Time.Before(cutoff) {
			out = append(out, boundarySample(out[n-1], cutoff))
		}
		break
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func boundarySample(last Sample, at time.Time) Sample {
	clone := Sample{Time: at}
	if last.BPM != nil {
		bpm := *last.BPM
		clone.BPM = &bpm
	}
	return clone
}

// ElapsedWindow keeps the samples whose accumulated forward durations stay
// within limit. It is derived from Durations rather than from wall-clock
// offsets, so it is independent of CapWindow.
func ElapsedWindow(samples []Sample, limit time.Duration) []Sample {
	durations := Durations(samples)
	maxSeconds := limit.Seconds() + 1e-9

	var elapsed float64
	n := 0
	for i := range samples {
		if elapsed > maxSeconds {
			break
		}
		n = i + 1
		elapsed += durations[i]
	}
	return samples[:n]
}

// WindowComparison reports the time span retained by CapWindow and ElapsedWindow
type WindowComparison struct {
	CapSpan     time.Duration
	ElapsedSpan time.Duration
}

// Agree reports whether both windows retained the same span
func (w WindowComparison) Agree() bool {
	return w.CapSpan == w.ElapsedSpan
}

// CompareWindows runs both window derivations over the same normalized series
func CompareWindows(samples []Sample, limit time.Duration) WindowComparison {
	_, _, capSpan := Span(CapWindow(samples, limit))
	_, _, elapsedSpan := Span(ElapsedWindow(samples, limit))
	return WindowComparison{CapSpan: capSpan, ElapsedSpan: elapsedSpan}
}
