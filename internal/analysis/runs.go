package analysis

// Run is a maximal stretch of consecutive items sharing the same key.
// Start is inclusive and End is exclusive.
type Run[K comparable] struct {
	Key   K
	Start int
	End   int
}

// Len returns the number of items in the run
func (r Run[K]) Len() int {
	return r.End - r.Start
}

// Runs run-length encodes items by key
func Runs[T any, K comparable](items []T, key func(T) K) []Run[K] {
	if len(items) == 0 {
		return nil
	}

	var runs []Run[K]
	current := Run[K]{Key: key(items[0]), Start: 0}
	for i := 1; i < len(items); i++ {
		k := key(items[i])
		if k == current.Key {
			continue
		}
		current.End = i
		runs = append(runs, current)
		current = Run[K]{Key: k, Start: i}
	}
	current.End = len(items)
	return append(runs, current)
}

// ReduceRuns groups items into runs, drops runs rejected by keep and
// aggregates each remaining run with agg. A nil keep keeps every run.
func ReduceRuns[T any, K comparable, A any](
	items []T,
	key func(T) K,
	keep func(Run[K]) bool,
	agg func(run Run[K], members []T) A,
) []A {
	var out []A
	for _, r := range Runs(items, key) {
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, agg(r, items[r.Start:r.End]))
	}
	return out
}
