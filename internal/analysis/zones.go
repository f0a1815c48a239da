package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ZoneCount is the number of heart-rate zones every subject has
const ZoneCount = 5

var (
	// ErrInvalidZones is returned when zone boundaries are incomplete or inverted
	ErrInvalidZones = errors.New("invalid zone boundaries")

	// ErrOverlappingZones is returned when two zones share a bpm value or are out of order
	ErrOverlappingZones = errors.New("zone boundaries overlap")
)

// Range is an inclusive bpm interval
type Range struct {
	Start int
	End   int
}

// Contains reports whether bpm falls inside the range, both ends inclusive
func (r Range) Contains(bpm float64) bool {
	return float64(r.Start) <= bpm && bpm <= float64(r.End)
}

// Zone is one of a subject's numbered heart-rate zones
type Zone struct {
	Index int
	Range
}

// ZoneBoundaries holds a subject's zones 1..ZoneCount in index order.
// Zones are validated to be increasing and non-overlapping.
type ZoneBoundaries struct {
	zones []Zone
}

// NewZoneBoundaries validates and builds zone boundaries from index -> range
func NewZoneBoundaries(ranges map[int]Range) (ZoneBoundaries, error) {
	if len(ranges) != ZoneCount {
		return ZoneBoundaries{}, fmt.Errorf("%w: want %d zones, got %d", ErrInvalidZones, ZoneCount, len(ranges))
	}

	zones := make([]Zone, 0, ZoneCount)
	for idx := 1; idx <= ZoneCount; idx++ {
		r, ok := ranges[idx]
		if !ok {
			return ZoneBoundaries{}, fmt.Errorf("%w: zone %d missing", ErrInvalidZones, idx)
		}
		if r.Start > r.End {
			return ZoneBoundaries{}, fmt.Errorf("%w: zone %d starts at %d after its end %d", ErrInvalidZones, idx, r.Start, r.End)
		}
		if idx > 1 {
			prev := zones[len(zones)-1]
			if r.Start <= prev.End {
				return ZoneBoundaries{}, fmt.Errorf("%w: zone %d (%d-%d) and zone %d (%d-%d)",
					ErrOverlappingZones, prev.Index, prev.Start, prev.End, idx, r.Start, r.End)
			}
		}
		zones = append(zones, Zone{Index: idx, Range: r})
	}

	return ZoneBoundaries{zones: zones}, nil
}

// Zone returns the zone with the given index
func (b ZoneBoundaries) Zone(idx int) (Zone, bool) {
	if idx < 1 || idx > len(b.zones) {
		return Zone{}, false
	}
	return b.zones[idx-1], true
}

// Zones returns a copy of all zones in index order
func (b ZoneBoundaries) Zones() []Zone {
	return append([]Zone(nil), b.zones...)
}

// MaxIndex returns the highest zone index
func (b ZoneBoundaries) MaxIndex() int {
	return len(b.zones)
}

// Category is the zone classification of a single sample
type Category string

const (
	CategoryAbove Category = "above"
	CategoryBelow Category = "below"
)

// ZoneCategory returns the category label for an allowed zone
func ZoneCategory(idx int) Category {
	return Category(fmt.Sprintf("z%d", idx))
}

// ZoneContext is the shared input of classification, bout and load analysis
// for one session: the analysed samples, their durations and the allowed zones.
type ZoneContext struct {
	Samples   []Sample
	Durations []float64
	Bounds    ZoneBoundaries
	Allowed   []int // ascending
	Highest   float64
	Lowest    float64
}

// NewZoneContext derives the allowed bpm ceiling and floor for a normalized series
func NewZoneContext(samples []Sample, bounds ZoneBoundaries, allowed []int) (*ZoneContext, error) {
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: no allowed zones", ErrInvalidZones)
	}

	sorted := append([]int(nil), allowed...)
	sort.Ints(sorted)

	highest := math.Inf(-1)
	lowest := math.Inf(1)
	for _, idx := range sorted {
		z, ok := bounds.Zone(idx)
		if !ok {
			return nil, fmt.Errorf("%w: allowed zone %d not defined", ErrInvalidZones, idx)
		}
		highest = math.Max(highest, float64(z.End))
		lowest = math.Min(lowest, float64(z.Start))
	}

	return &ZoneContext{
		Samples:   samples,
		Durations: Durations(samples),
		Bounds:    bounds,
		Allowed:   sorted,
		Highest:   highest,
		Lowest:    lowest,
	}, nil
}

// Classify assigns every sample to above, one of the allowed zones, or below.
// Missing readings are below.
func Classify(ctx *ZoneContext) []Category {
	categories := make([]Category, len(ctx.Samples))
	for i, s := range ctx.Samples {
		categories[i] = classifyBPM(ctx, s.BPM)
	}
	return categories
}

func classifyBPM(ctx *ZoneContext, bpm *float64) Category {
	if bpm == nil {
		return CategoryBelow
	}
	if *bpm > ctx.Highest {
		return CategoryAbove
	}

	category := CategoryBelow
	// Later zones overwrite earlier matches; validated bounds never overlap.
	for _, idx := range ctx.Allowed {
		z, _ := ctx.Bounds.Zone(idx)
		if z.Contains(*bpm) {
			category = ZoneCategory(idx)
		}
	}
	return category
}

// ZoneTimes holds seconds spent per classification
type ZoneTimes struct {
	InAllowed  float64
	Above      float64
	Below      float64
	ByCategory map[Category]float64
}

// Total returns all classified time
func (z ZoneTimes) Total() float64 {
	return z.InAllowed + z.Above + z.Below
}

// SummarizeZones sums sample durations per category
func SummarizeZones(ctx *ZoneContext, categories []Category) ZoneTimes {
	buckets := make(map[Category][]float64)
	for i, c := range categories {
		buckets[c] = append(buckets[c], ctx.Durations[i])
	}

	times := ZoneTimes{ByCategory: make(map[Category]float64, len(buckets))}
	for c, durations := range buckets {
		times.ByCategory[c] = floats.Sum(durations)
	}

	times.Above = times.ByCategory[CategoryAbove]
	times.Below = times.ByCategory[CategoryBelow]
	for _, idx := range ctx.Allowed {
		times.InAllowed += times.ByCategory[ZoneCategory(idx)]
	}
	return times
}
