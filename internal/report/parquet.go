package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"hrqc/internal/store"
)

// Parquet file names written by WriteParquet
const (
	QCParquetFile   = "qc.parquet"
	ZoneParquetFile = "zones.parquet"
)

// QCRecord is the parquet layout of a QCRow. Times are wall-clock HH:MM:SS.
type QCRecord struct {
	Group     string   `parquet:"group,snappy"`
	Subject   string   `parquet:"subject,snappy"`
	Week      *int32   `parquet:"week,optional,snappy"`
	Session   string   `parquet:"session,snappy"`
	ErrorType string   `parquet:"error_type,snappy"`
	Message   string   `parquet:"message,snappy"`
	StartTime *string  `parquet:"start_time,optional,snappy"`
	EndTime   *string  `parquet:"end_time,optional,snappy"`
	DurationS *float64 `parquet:"duration_s,optional,snappy"`
	Length    *int32   `parquet:"length,optional,snappy"`
}

// ZoneRecord is the parquet layout of a ZoneRow
type ZoneRecord struct {
	Group               string   `parquet:"group,snappy"`
	Subject             string   `parquet:"subject,snappy"`
	Week                int32    `parquet:"week,snappy"`
	Session             string   `parquet:"session,snappy"`
	TimeInAllowedS      float64  `parquet:"time_in_allowed_s,snappy"`
	TimeAboveS          float64  `parquet:"time_above_s,snappy"`
	TimeBelowS          float64  `parquet:"time_below_s,snappy"`
	LongestBoundedBoutS float64  `parquet:"longest_bounded_bout_s,snappy"`
	BoundedMet          bool     `parquet:"bounded_met"`
	ZoneCompliance      *float64 `parquet:"zone_compliance,optional,snappy"`
	MAZD                *float64 `parquet:"mazd,optional,snappy"`
	TRIMP               *float64 `parquet:"trimp,optional,snappy"`
}

// QCRecords converts defect rows to parquet records
func QCRecords(rows []QCRow) []QCRecord {
	records := make([]QCRecord, len(rows))
	for i, r := range rows {
		records[i] = QCRecord{
			Group:     r.Group,
			Subject:   r.Subject,
			Week:      int32Ptr(r.Week),
			Session:   r.Session,
			ErrorType: r.ErrorType,
			Message:   r.Message,
			DurationS: r.DurationS,
			Length:    int32Ptr(r.Length),
		}
		if r.Start != nil {
			s := clock(r.Start)
			records[i].StartTime = &s
		}
		if r.End != nil {
			s := clock(r.End)
			records[i].EndTime = &s
		}
	}
	return records
}

// ZoneRecords converts zone rows to parquet records
func ZoneRecords(rows []ZoneRow) []ZoneRecord {
	records := make([]ZoneRecord, len(rows))
	for i, r := range rows {
		records[i] = ZoneRecord{
			Group:               r.Group,
			Subject:             r.Subject,
			Week:                int32(r.Week),
			Session:             r.Session,
			TimeInAllowedS:      r.TimeInAllowedS,
			TimeAboveS:          r.TimeAboveS,
			TimeBelowS:          r.TimeBelowS,
			LongestBoundedBoutS: r.LongestBoundedBoutS,
			BoundedMet:          r.BoundedMet,
			ZoneCompliance:      r.ZoneCompliance,
			MAZD:                r.MAZD,
			TRIMP:               r.TRIMP,
		}
	}
	return records
}

// WriteParquet writes the defect and zone reports to dir as QCParquetFile and ZoneParquetFile
func WriteParquet(dir string, results []store.FileResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating parquet directory: %w", err)
	}

	if err := writeParquetFile(filepath.Join(dir, QCParquetFile), QCRecords(QCRows(results))); err != nil {
		return err
	}
	return writeParquetFile(filepath.Join(dir, ZoneParquetFile), ZoneRecords(ZoneRows(results)))
}

func writeParquetFile[T any](path string, records []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(records); err != nil {
		writer.Close()
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// Close flushes the footer
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("closing parquet writer for %s: %w", path, err)
	}
	return file.Close()
}

func int32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}
