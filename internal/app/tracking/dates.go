// Package tracking implements the completion-state engine for habits:
// local-calendar-day handling, derived metrics (30-day completion stat,
// current streak), the local override ledger that masks read-after-write
// staleness, and the toggle coordinator that applies optimistic mark/undo
// mutations with rollback on persistence failure.
//
// The package is deliberately free of MongoDB imports; persistence is
// reached only through the LogWriter and Querier interfaces so the engine
// can be tested without a database.
package tracking

import (
	"fmt"
	"time"
)

// dayLayout is the wire and storage format for calendar days.
const dayLayout = "2006-01-02"

// Day is a local calendar day in "YYYY-MM-DD" form. It carries no
// time-of-day component; which wall-clock instant a Day covers depends on
// the user's timezone, which is applied once when the Day is derived and
// never afterward.
type Day string

// FormatDay returns the calendar day of t in the given location.
func FormatDay(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	return Day(t.In(loc).Format(dayLayout))
}

// Today returns the current calendar day in the given location.
func Today(loc *time.Location) Day {
	return FormatDay(time.Now(), loc)
}

// Valid reports whether d parses as a YYYY-MM-DD date.
func (d Day) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// Time returns the day as midnight UTC, for arithmetic only.
func (d Day) Time() (time.Time, error) {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", string(d), err)
	}
	return t, nil
}

// AddDays returns the day n calendar days after d (n may be negative).
// An unparseable day is returned unchanged.
func (d Day) AddDays(n int) Day {
	t, err := d.Time()
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

// Before reports whether d is an earlier calendar day than other.
// String comparison is correct for the fixed-width YYYY-MM-DD layout.
func (d Day) Before(other Day) bool { return string(d) < string(other) }

// After reports whether d is a later calendar day than other.
func (d Day) After(other Day) bool { return string(d) > string(other) }

// DaysBetween returns the number of calendar days from a to b
// (positive when b is after a). Unparseable input yields 0.
func DaysBetween(a, b Day) int {
	ta, err := a.Time()
	if err != nil {
		return 0
	}
	tb, err := b.Time()
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}
