package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"hrqc/internal/store"
)

var qcHeader = []string{
	"group", "subject", "week", "session",
	"error_type", "message", "start_time", "end_time", "duration_s", "length",
}

var zoneHeader = []string{
	"group", "subject", "week", "session",
	"time_in_allowed_s", "time_above_s", "time_below_s", "longest_bounded_bout_s",
	"bounded_met", "zone_compliance", "mazd", "trimp",
}

// WriteQCCSV writes the defect report. Missing values are empty cells.
func WriteQCCSV(w io.Writer, results []store.FileResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(qcHeader); err != nil {
		return err
	}

	for _, r := range QCRows(results) {
		row := []string{
			r.Group,
			r.Subject,
			formatIntPtr(r.Week),
			r.Session,
			r.ErrorType,
			r.Message,
			clock(r.Start),
			clock(r.End),
			formatFloatPtr(r.DurationS),
			formatIntPtr(r.Length),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteZoneCSV writes one row of zone metrics per analysed file
func WriteZoneCSV(w io.Writer, results []store.FileResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(zoneHeader); err != nil {
		return err
	}

	for _, r := range ZoneRows(results) {
		row := []string{
			r.Group,
			r.Subject,
			strconv.Itoa(r.Week),
			r.Session,
			formatFloat(r.TimeInAllowedS),
			formatFloat(r.TimeAboveS),
			formatFloat(r.TimeBelowS),
			formatFloat(r.LongestBoundedBoutS),
			strconv.FormatBool(r.BoundedMet),
			formatFloatPtr(r.ZoneCompliance),
			formatFloatPtr(r.MAZD),
			formatFloatPtr(r.TRIMP),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile creates path, along with missing parent directories, and fills it with write
func WriteFile(path string, results []store.FileResult, write func(io.Writer, []store.FileResult) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f, results); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
