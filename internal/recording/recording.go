package recording

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hrqc/internal/analysis"
)

const (
	extCSV = ".csv"
	extFIT = ".fit"
)

// Read loads the heart-rate samples of a recording, choosing the parser by extension
func Read(path string, logger *slog.Logger) ([]analysis.Sample, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case extCSV:
		return ReadPolarCSV(f, logger.With("file", path))
	case extFIT:
		return ReadFIT(f, time.Local)
	}
	return nil, fmt.Errorf("%w: unsupported extension %q", ErrBadFormat, filepath.Ext(path))
}

// Window returns the first and last sample times and the recording length in
// recording order, counting a day each time the clock runs backwards.
// ok is false for an empty recording.
func Window(samples []analysis.Sample) (start, end time.Time, length time.Duration, ok bool) {
	if len(samples) == 0 {
		return time.Time{}, time.Time{}, 0, false
	}
	adjusted := analysis.AdjustRollover(samples)
	start = adjusted[0]
	end = adjusted[len(adjusted)-1]
	return start, end, end.Sub(start), true
}
