package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Banister-Edwards weighting: weight = a * e^(b * intensity), b = 1.92 (male default)
const (
	trimpWeightA = 0.64
	trimpWeightB = 1.92
)

var (
	// ErrRestMaxMissing is returned when TRIMP cannot be computed for lack of rest or max HR
	ErrRestMaxMissing = errors.New("resting or max HR missing")

	// ErrNoHeartRateReserve is returned when max HR does not exceed resting HR
	ErrNoHeartRateReserve = errors.New("max HR must exceed resting HR")
)

// RestMax holds a subject's resting and maximum heart rate, either may be unknown
type RestMax struct {
	RestingHR *float64
	MaxHR     *float64
}

// TRIMP calculates Training Impulse (Banister-Edwards) over per-sample durations.
// Each sample contributes duration (min) * intensity * 0.64 * e^(1.92 * intensity)
// where intensity = (bpm - rest) / (max - rest). Intensity is not clamped.
// NaN bpm values are skipped.
func TRIMP(bpm, durations []float64, restHR, maxHR *float64) (float64, error) {
	if restHR == nil || maxHR == nil {
		return 0, ErrRestMaxMissing
	}
	reserve := *maxHR - *restHR
	if reserve <= 0 {
		return 0, ErrNoHeartRateReserve
	}

	contributions := make([]float64, 0, len(bpm))
	for i, hr := range bpm {
		if math.IsNaN(hr) {
			continue
		}
		intensity := (hr - *restHR) / reserve
		weight := trimpWeightA * math.Exp(trimpWeightB*intensity)
		contributions = append(contributions, durations[i]/60*intensity*weight)
	}
	return floats.Sum(contributions), nil
}

// ContinuousZoneIndex maps bpm onto the zone scale: 0 below zone 1,
// MaxIndex()+1 above the top zone, otherwise the containing zone.
// Values falling between two zones have no index.
func ContinuousZoneIndex(bounds ZoneBoundaries, bpm float64) (int, bool) {
	zones := bounds.zones
	if len(zones) == 0 || math.IsNaN(bpm) {
		return 0, false
	}
	if bpm < float64(zones[0].Start) {
		return 0, true
	}
	if bpm > float64(zones[len(zones)-1].End) {
		return bounds.MaxIndex() + 1, true
	}
	for _, z := range zones {
		if z.Contains(bpm) {
			return z.Index, true
		}
	}
	return 0, false
}

// nearestAllowed returns the allowed zone closest to idx; the first one wins ties
func nearestAllowed(idx int, allowed []int) int {
	best := allowed[0]
	bestDist := absInt(idx - best)
	for _, a := range allowed[1:] {
		if d := absInt(idx - a); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// MAZD calculates the mean absolute zone deviation: the duration-weighted mean
// distance between each sample's zone and the nearest allowed zone.
// Supervised sessions are re-windowed to SupervisedWindow from elapsed durations.
// Returns nil when no sample has a zone index or all durations are zero.
func MAZD(samples []Sample, bounds ZoneBoundaries, allowed []int, supervised bool) *float64 {
	if len(samples) == 0 || len(allowed) == 0 {
		return nil
	}

	durations := Durations(samples)
	if supervised {
		n := len(ElapsedWindow(samples, SupervisedWindow))
		samples, durations = samples[:n], durations[:n]
	}

	var deviations, weights []float64
	for i, s := range samples {
		if s.BPM == nil {
			continue
		}
		idx, ok := ContinuousZoneIndex(bounds, *s.BPM)
		if !ok {
			continue
		}
		target := nearestAllowed(idx, allowed)
		deviations = append(deviations, float64(absInt(idx-target)))
		weights = append(weights, durations[i])
	}

	if floats.Sum(weights) == 0 {
		return nil
	}
	mazd := stat.Mean(deviations, weights)
	return &mazd
}

// ZoneCompliance returns the share of classified time spent in allowed zones
func ZoneCompliance(times ZoneTimes) *float64 {
	total := times.Total()
	if total == 0 {
		return nil
	}
	compliance := times.InAllowed / total
	return &compliance
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
