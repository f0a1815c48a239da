package recording

import (
	"fmt"
	"io"
	"time"

	"github.com/tormoder/fit"

	"hrqc/internal/analysis"
)

// invalidHeartRate is the FIT sentinel for an absent uint8 heart rate
const invalidHeartRate = 0xFF

// ReadFIT decodes the record messages of a FIT activity file. Timestamps are
// reduced to wall-clock-of-day in loc; nil loc means time.Local.
func ReadFIT(r io.Reader, loc *time.Location) ([]analysis.Sample, error) {
	if loc == nil {
		loc = time.Local
	}

	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding fit: %v", ErrBadFormat, err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	samples := make([]analysis.Sample, 0, len(activity.Records))
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() {
			continue
		}
		local := rec.Timestamp.In(loc)
		s := analysis.Sample{Time: Clock(local.Hour(), local.Minute(), local.Second())}
		if rec.HeartRate != invalidHeartRate {
			bpm := float64(rec.HeartRate)
			s.BPM = &bpm
		}
		samples = append(samples, s)
	}
	return samples, nil
}
