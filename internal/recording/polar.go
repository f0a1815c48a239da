package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"hrqc/internal/analysis"
)

// Polar exports start with a two-line session summary before the sample header
const polarPreambleLines = 2

const (
	polarTimeColumn = "Time"
	polarHRColumn   = "HR (bpm)"
)

// ErrBadFormat is returned when a recording cannot be parsed
var ErrBadFormat = errors.New("unrecognized recording format")

// clockDate anchors wall-clock-of-day sample times
var clockDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock returns the wall-clock-of-day time used for samples
func Clock(h, m, s int) time.Time {
	return clockDate.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// ReadPolarCSV parses a Polar Flow CSV export. Blank heart rates become missing
// readings; hours of 24 or more are folded back into the day with a warning.
func ReadPolarCSV(r io.Reader, logger *slog.Logger) ([]analysis.Sample, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for i := 0; i < polarPreambleLines; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("%w: reading preamble: %v", ErrBadFormat, err)
		}
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrBadFormat, err)
	}
	timeCol, hrCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case polarTimeColumn:
			timeCol = i
		case polarHRColumn:
			hrCol = i
		}
	}
	if timeCol < 0 || hrCol < 0 {
		return nil, fmt.Errorf("%w: columns %q and %q required", ErrBadFormat, polarTimeColumn, polarHRColumn)
	}

	var (
		samples    []analysis.Sample
		folded     int
		foldedFrom string
	)
	for line := polarPreambleLines + 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		if len(record) <= timeCol || len(record) <= hrCol {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrBadFormat, line, len(record))
		}

		raw := strings.TrimSpace(record[timeCol])
		t, wrapped, err := parseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadFormat, line, err)
		}
		if wrapped {
			if folded == 0 {
				foldedFrom = raw
			}
			folded++
		}

		samples = append(samples, analysis.Sample{Time: t, BPM: parseBPM(record[hrCol])})
	}

	if folded > 0 {
		logger.Warn("time values with hour >= 24; normalizing to hour % 24",
			"count", folded, "sample", foldedFrom)
	}
	return samples, nil
}

// parseClock parses HH:MM:SS, folding hours >= 24 into the day
func parseClock(s string) (time.Time, bool, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return time.Time{}, false, fmt.Errorf("time %q is not HH:MM:SS", s)
	}

	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return time.Time{}, false, fmt.Errorf("time %q is not HH:MM:SS", s)
		}
		fields[i] = v
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if m > 59 || sec > 59 {
		return time.Time{}, false, fmt.Errorf("time %q out of range", s)
	}

	wrapped := h >= 24
	return Clock(h%24, m, sec), wrapped, nil
}

func parseBPM(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}
