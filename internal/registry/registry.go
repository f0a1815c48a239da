// Package registry reads per-subject heart-rate zones and resting/max heart
// rates from the study's zone spreadsheet.
package registry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"hrqc/internal/analysis"
)

const (
	idColumn   = "boost id"
	restColumn = "rest hr"
	maxColumn  = "max hr"

	// zone bounds occupy ten columns starting at the sixth: z1 start, z1 end, ... z5 end
	firstZoneColumn = 5
	zoneColumns     = 2 * analysis.ZoneCount
)

var (
	// ErrSubjectNotFound is returned when no row carries the subject's id
	ErrSubjectNotFound = errors.New("subject not found in zone registry")

	// ErrMissingColumns is returned when the sheet lacks a required column
	ErrMissingColumns = errors.New("missing required columns in zone registry")
)

// Registry is a loaded zone spreadsheet. It is read-only and safe for concurrent use.
type Registry struct {
	path    string
	rows    map[int][]string // subject id -> row cells
	restCol int              // -1 when absent
	maxCol  int              // -1 when absent
}

// Load reads the given sheet of a zone spreadsheet
func Load(path, sheet string) (*Registry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening zone registry: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return parse(path, rows)
}

func parse(path string, rows [][]string) (*Registry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet has no header row", ErrMissingColumns)
	}

	header := rows[0]
	idCol, restCol, maxCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case idColumn:
			idCol = i
		case restColumn:
			restCol = i
		case maxColumn:
			maxCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumns, "BOOST ID")
	}
	if len(header) < firstZoneColumn+zoneColumns {
		return nil, fmt.Errorf("%w: want %d zone columns from column %d, sheet has %d columns",
			ErrMissingColumns, zoneColumns, firstZoneColumn+1, len(header))
	}

	reg := &Registry{
		path:    path,
		rows:    make(map[int][]string, len(rows)-1),
		restCol: restCol,
		maxCol:  maxCol,
	}
	for _, row := range rows[1:] {
		id, ok := parseInt(cell(row, idCol))
		if !ok {
			continue
		}
		if _, dup := reg.rows[id]; dup {
			continue // first row wins
		}
		reg.rows[id] = row
	}
	return reg, nil
}

// Subjects returns the number of subjects in the registry
func (r *Registry) Subjects() int {
	return len(r.rows)
}

func (r *Registry) row(subject string) ([]string, error) {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) >= 3 && strings.EqualFold(trimmed[:3], "sub") {
		trimmed = trimmed[3:]
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: subject id %q is not numeric", ErrSubjectNotFound, subject)
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: no rows matching ID %d", ErrSubjectNotFound, id)
	}
	return row, nil
}

// Zones returns a subject's five zones with adjacent boundaries snapped to the
// nearest multiple of snapTo.
func (r *Registry) Zones(subject string, snapTo int) (map[int]analysis.Range, error) {
	row, err := r.row(subject)
	if err != nil {
		return nil, err
	}

	var bounds [zoneColumns]int
	for i := range bounds {
		col := firstZoneColumn + i
		v, ok := parseInt(cell(row, col))
		if !ok {
			return nil, fmt.Errorf("zone value in column %d for %s is missing or not numeric: %q",
				col+1, subject, cell(row, col))
		}
		bounds[i] = v
	}

	starts := make([]int, analysis.ZoneCount)
	ends := make([]int, analysis.ZoneCount)
	for z := 0; z < analysis.ZoneCount; z++ {
		starts[z] = bounds[2*z]
		ends[z] = bounds[2*z+1]
	}
	return MidpointSnap(starts, ends, snapTo), nil
}

// MidpointSnap closes the gaps between adjacent zones: each boundary becomes
// the midpoint of the previous end and next start, rounded half-to-even to a
// multiple of snapTo. The upper zone starts one bpm above it.
func MidpointSnap(starts, ends []int, snapTo int) map[int]analysis.Range {
	n := len(starts)
	if snapTo < 1 {
		snapTo = 1
	}

	mids := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		raw := float64(ends[i-1]+starts[i]) / 2
		mids = append(mids, int(math.RoundToEven(raw/float64(snapTo)))*snapTo)
	}

	ranges := make(map[int]analysis.Range, n)
	for i := 0; i < n; i++ {
		start := starts[0]
		if i > 0 {
			start = mids[i-1] + 1
		}
		end := ends[n-1]
		if i < n-1 {
			end = mids[i]
		}
		ranges[i+1] = analysis.Range{Start: start, End: end}
	}
	return ranges
}

// RestMax returns a subject's resting and max heart rate. Blank or
// non-numeric values come back nil; a sheet without the columns is an error.
func (r *Registry) RestMax(subject string) (analysis.RestMax, error) {
	if r.restCol < 0 || r.maxCol < 0 {
		var missing []string
		if r.restCol < 0 {
			missing = append(missing, restColumn)
		}
		if r.maxCol < 0 {
			missing = append(missing, maxColumn)
		}
		return analysis.RestMax{}, fmt.Errorf("%w: %v", ErrMissingColumns, missing)
	}

	row, err := r.row(subject)
	if err != nil {
		return analysis.RestMax{}, err
	}
	return analysis.RestMax{
		RestingHR: parseFloat(cell(row, r.restCol)),
		MaxHR:     parseFloat(cell(row, r.maxCol)),
	}, nil
}

// cell returns row[i]; GetRows drops trailing empty cells
func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseInt(s string) (int, bool) {
	v := parseFloat(s)
	if v == nil {
		return 0, false
	}
	return int(*v), true
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
