package model

import "time"

// Interval is a right-open time range [Start, End). Boundary instants are
// never double-counted: a revision ending exactly where another begins does
// not overlap it.
type Interval struct {
	Start time.Time
	End   time.Time
}

// At returns the degenerate interval covering a single instant.
func At(instant time.Time) Interval {
	return Interval{Start: instant, End: instant}
}

// Contains reports whether the instant falls inside the interval.
func (i Interval) Contains(instant time.Time) bool {
	return !instant.Before(i.Start) && instant.Before(i.End)
}

// Intersects reports whether two right-open intervals share any instant.
func (i Interval) Intersects(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}
