package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store is the results data access layer
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func newStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Run Methods ---

// CreateRun starts a new QC run and returns it
func (s *Store) CreateRun(ctx context.Context, root string, fileCount int) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Root:      root,
		FileCount: fileCount,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO qc_runs (id, started_at, root, file_count) VALUES (?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.Root, run.FileCount)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// FinishRun stamps a run's finish time
func (s *Store) FinishRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE qc_runs SET finished_at = ? WHERE id = ?`, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by id
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, root, file_count FROM qc_runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun retrieves the most recently started run
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, root, file_count FROM qc_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Root, &run.FileCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt.String, err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

// --- Conversion Helpers ---

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func ptrToNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func ptrIntToNullInt64(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func ptrTimeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullFloat64ToPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

func nullInt64ToIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullStringToTimePtr(n sql.NullString) (*time.Time, error) {
	if !n.Valid {
		return nil, nil
	}
	t, err := parseTime(n.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
