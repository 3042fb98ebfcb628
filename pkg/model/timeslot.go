package model

import "fmt"

// Grid is the process-wide time grid shared by every planning component.
// It is fixed at model construction and never mutated afterwards.
type Grid struct {
	Days          int
	PeriodsPerDay int
}

// Slots returns the total number of discrete slots in the grid.
func (g Grid) Slots() int {
	return g.Days * g.PeriodsPerDay
}

// Index flattens a (day, period) pair into a single slot index.
func (g Grid) Index(day, period int) int {
	return day*g.PeriodsPerDay + period
}

// Valid reports whether the (day, period) pair lies inside the grid.
func (g Grid) Valid(day, period int) bool {
	return day >= 0 && day < g.Days && period >= 0 && period < g.PeriodsPerDay
}

// SlotRange is a run of contiguous periods within a single day. A section
// requiring k slots occupies one SlotRange of Length k.
type SlotRange struct {
	Day    int
	Start  int
	Length int
}

// End returns the first period after the range (exclusive bound).
func (r SlotRange) End() int {
	return r.Start + r.Length
}

// Overlaps reports whether two ranges share at least one (day, period) pair.
func (r SlotRange) Overlaps(other SlotRange) bool {
	return r.Day == other.Day && r.Start < other.End() && other.Start < r.End()
}

// Contains reports whether the range covers the given (day, period) pair.
func (r SlotRange) Contains(day, period int) bool {
	return r.Day == day && period >= r.Start && period < r.End()
}

// Fits reports whether the range lies entirely inside the grid.
func (r SlotRange) Fits(g Grid) bool {
	return r.Day >= 0 && r.Day < g.Days && r.Start >= 0 && r.Length > 0 && r.End() <= g.PeriodsPerDay
}

func (r SlotRange) String() string {
	return fmt.Sprintf("day %d, periods %d-%d", r.Day, r.Start, r.End()-1)
}
