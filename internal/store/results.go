package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveFileResult stores a recording's result under a run, replacing any
// previous result for the same path.
func (s *Store) SaveFileResult(ctx context.Context, runID string, r FileResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM defect_details WHERE run_id = ? AND path = ?`,
		`DELETE FROM defects WHERE run_id = ? AND path = ?`,
		`DELETE FROM session_results WHERE run_id = ? AND path = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, runID, r.Path); err != nil {
			return fmt.Errorf("clearing previous result: %w", err)
		}
	}

	var (
		metricsWeek, boundedMet       sql.NullInt64
		inAllowed, above, below, bout sql.NullFloat64
		compliance, mazd, trimp       sql.NullFloat64
	)
	if m := r.Metrics; m != nil {
		metricsWeek = sql.NullInt64{Int64: int64(m.Week), Valid: true}
		inAllowed = sql.NullFloat64{Float64: m.TimeInAllowedS, Valid: true}
		above = sql.NullFloat64{Float64: m.TimeAboveS, Valid: true}
		below = sql.NullFloat64{Float64: m.TimeBelowS, Valid: true}
		bout = sql.NullFloat64{Float64: m.LongestBoundedBoutS, Valid: true}
		boundedMet = sql.NullInt64{Int64: boolToInt64(m.BoundedMet), Valid: true}
		compliance = ptrToNullFloat64(m.ZoneCompliance)
		mazd = ptrToNullFloat64(m.MAZD)
		trimp = ptrToNullFloat64(m.TRIMP)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_results (
			run_id, path, grp, subject, week, session, supervised, sample_count, has_metrics,
			metrics_week, time_in_allowed_s, time_above_s, time_below_s, longest_bounded_bout_s,
			bounded_met, zone_compliance, mazd, trimp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Path, r.Group, r.Subject, r.Week, r.Session, boolToInt64(r.Supervised), r.SampleCount,
		boolToInt64(r.Metrics != nil), metricsWeek, inAllowed, above, below, bout,
		boundedMet, compliance, mazd, trimp)
	if err != nil {
		return fmt.Errorf("inserting session result: %w", err)
	}

	for seq, d := range r.Report.Defects() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO defects (run_id, path, seq, kind, message) VALUES (?, ?, ?, ?, ?)`,
			runID, r.Path, seq, string(d.Kind), d.Message); err != nil {
			return fmt.Errorf("inserting defect %s: %w", d.Kind, err)
		}
		for idx, detail := range d.Details {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO defect_details (run_id, path, seq, idx, start_time, end_time, duration_s, length)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, r.Path, seq, idx,
				ptrTimeToNullString(detail.Start), ptrTimeToNullString(detail.End),
				ptrToNullFloat64(detail.DurationS), ptrIntToNullInt64(detail.Length)); err != nil {
				return fmt.Errorf("inserting defect detail: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ListFileResults returns every result of a run ordered by path
func (s *Store) ListFileResults(ctx context.Context, runID string) ([]FileResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, grp, subject, week, session, supervised, sample_count, has_metrics,
		       metrics_week, time_in_allowed_s, time_above_s, time_below_s, longest_bounded_bout_s,
		       bounded_met, zone_compliance, mazd, trimp
		FROM session_results WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying session results: %w", err)
	}
	defer rows.Close()

	var (
		results []FileResult
		index   = make(map[string]int)
	)
	for rows.Next() {
		var (
			r                             FileResult
			supervised, hasMetrics        int64
			metricsWeek, boundedMet       sql.NullInt64
			inAllowed, above, below, bout sql.NullFloat64
			compliance, mazd, trimp       sql.NullFloat64
		)
		if err := rows.Scan(&r.Path, &r.Group, &r.Subject, &r.Week, &r.Session, &supervised, &r.SampleCount,
			&hasMetrics, &metricsWeek, &inAllowed, &above, &below, &bout,
			&boundedMet, &compliance, &mazd, &trimp); err != nil {
			return nil, fmt.Errorf("scanning session result: %w", err)
		}
		r.Supervised = supervised == 1
		if hasMetrics == 1 {
			r.Metrics = &SessionMetrics{
				Week:                int(metricsWeek.Int64),
				TimeInAllowedS:      inAllowed.Float64,
				TimeAboveS:          above.Float64,
				TimeBelowS:          below.Float64,
				LongestBoundedBoutS: bout.Float64,
				BoundedMet:          boundedMet.Int64 == 1,
				ZoneCompliance:      nullFloat64ToPtr(compliance),
				MAZD:                nullFloat64ToPtr(mazd),
				TRIMP:               nullFloat64ToPtr(trimp),
			}
		}
		index[r.Path] = len(results)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	defects, err := s.listDefects(ctx, runID)
	if err != nil {
		return nil, err
	}
	for path, list := range defects {
		i, ok := index[path]
		if !ok {
			continue
		}
		for _, d := range list {
			results[i].Report.Add(d)
		}
	}
	return results, nil
}

type defectKey struct {
	path string
	seq  int
}

// listDefects loads a run's defects per path in report order
func (s *Store) listDefects(ctx context.Context, runID string) (map[string][]Defect, error) {
	details, err := s.listDetails(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, seq, kind, message FROM defects WHERE run_id = ? ORDER BY path, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying defects: %w", err)
	}
	defer rows.Close()

	defects := make(map[string][]Defect)
	for rows.Next() {
		var (
			key  defectKey
			kind string
			d    Defect
		)
		if err := rows.Scan(&key.path, &key.seq, &kind, &d.Message); err != nil {
			return nil, fmt.Errorf("scanning defect: %w", err)
		}
		d.Kind = DefectKind(kind)
		d.Details = details[key]
		defects[key.path] = append(defects[key.path], d)
	}
	return defects, rows.Err()
}

func (s *Store) listDetails(ctx context.Context, runID string) (map[defectKey][]DefectDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, seq, start_time, end_time, duration_s, length
		FROM defect_details WHERE run_id = ? ORDER BY path, seq, idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying defect details: %w", err)
	}
	defer rows.Close()

	details := make(map[defectKey][]DefectDetail)
	for rows.Next() {
		var (
			key        defectKey
			start, end sql.NullString
			duration   sql.NullFloat64
			length     sql.NullInt64
		)
		if err := rows.Scan(&key.path, &key.seq, &start, &end, &duration, &length); err != nil {
			return nil, fmt.Errorf("scanning defect detail: %w", err)
		}

		var d DefectDetail
		if d.Start, err = nullStringToTimePtr(start); err != nil {
			return nil, fmt.Errorf("parsing start_time %q: %w", start.String, err)
		}
		if d.End, err = nullStringToTimePtr(end); err != nil {
			return nil, fmt.Errorf("parsing end_time %q: %w", end.String, err)
		}
		d.DurationS = nullFloat64ToPtr(duration)
		d.Length = nullInt64ToIntPtr(length)
		details[key] = append(details[key], d)
	}
	return details, rows.Err()
}

// CountDefects returns the number of defects of each kind in a run
func (s *Store) CountDefects(ctx context.Context, runID string) (map[DefectKind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM defects WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting defects: %w", err)
	}
	defer rows.Close()

	counts := make(map[DefectKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[DefectKind(kind)] = count
	}
	return counts, rows.Err()
}
