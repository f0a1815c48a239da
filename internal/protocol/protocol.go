package protocol

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownWeek is matched by every UnknownWeekError
var ErrUnknownWeek = errors.New("unknown protocol week")

// UnknownWeekError reports a week with no prescription in the requested plan
type UnknownWeekError struct {
	Week       int
	Supervised bool
}

func (e *UnknownWeekError) Error() string {
	plan := "unsupervised"
	if e.Supervised {
		plan = "supervised"
	}
	return fmt.Sprintf("no %s plan for week %d", plan, e.Week)
}

func (e *UnknownWeekError) Is(target error) bool {
	return target == ErrUnknownWeek
}

// Week is the prescription for one training week
type Week struct {
	Number       int
	Zones        []int // allowed zones, ascending
	WarmupMin    int
	BoundedMin   int
	UnboundedMin int
	CooldownMin  int
	Supervised   bool
}

// TotalMinutes returns the full prescribed session length
func (w Week) TotalMinutes() int {
	return w.WarmupMin + w.BoundedMin + w.UnboundedMin + w.CooldownMin
}

var supervisedPlan = map[int]Week{
	1: {Zones: []int{1, 2, 3}, WarmupMin: 5, BoundedMin: 15, UnboundedMin: 15, CooldownMin: 5},
	2: {Zones: []int{1, 2, 3}, WarmupMin: 5, BoundedMin: 20, UnboundedMin: 10, CooldownMin: 5},
	3: {Zones: []int{2, 3}, WarmupMin: 5, BoundedMin: 25, UnboundedMin: 5, CooldownMin: 5},
	4: {Zones: []int{2, 3, 4}, WarmupMin: 5, BoundedMin: 30, UnboundedMin: 0, CooldownMin: 5},
	5: {Zones: []int{3, 4}, WarmupMin: 5, BoundedMin: 30, UnboundedMin: 0, CooldownMin: 5},
	6: {Zones: []int{3, 4}, WarmupMin: 5, BoundedMin: 30, UnboundedMin: 0, CooldownMin: 5},
}

var unsupervisedPlan = map[int]Week{
	7:  {Zones: []int{3, 4}, WarmupMin: 5, BoundedMin: 30, UnboundedMin: 5, CooldownMin: 5},
	8:  {Zones: []int{3, 4}, WarmupMin: 5, BoundedMin: 35, UnboundedMin: 0, CooldownMin: 5},
	9:  {Zones: []int{3, 4}, WarmupMin: 5, BoundedMin: 35, UnboundedMin: 5, CooldownMin: 5},
	10: {Zones: []int{3, 4, 5}, WarmupMin: 5, BoundedMin: 40, UnboundedMin: 0, CooldownMin: 5},
	11: {Zones: []int{4, 5}, WarmupMin: 5, BoundedMin: 40, UnboundedMin: 0, CooldownMin: 5},
	12: {Zones: []int{4, 5}, WarmupMin: 5, BoundedMin: 40, UnboundedMin: 0, CooldownMin: 5},
}

func plan(supervised bool) map[int]Week {
	if supervised {
		return supervisedPlan
	}
	return unsupervisedPlan
}

// Lookup returns the prescription for a week. The returned value is a copy
// and may be modified freely.
func Lookup(week int, supervised bool) (Week, error) {
	w, ok := plan(supervised)[week]
	if !ok {
		return Week{}, &UnknownWeekError{Week: week, Supervised: supervised}
	}
	w.Number = week
	w.Supervised = supervised
	w.Zones = append([]int(nil), w.Zones...)
	return w, nil
}

// Weeks returns the week numbers of a plan in ascending order
func Weeks(supervised bool) []int {
	p := plan(supervised)
	weeks := make([]int, 0, len(p))
	for w := range p {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}
