// Package shift provides the injected clock and shift-calendar collaborators
// used when stamping detail records. Keeping both behind interfaces makes
// aggregation testable with fixed inputs instead of wall-clock reads.
package shift

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Shift identifies the working shift a record was produced in.
type Shift string

const (
	// Day is the daytime shift.
	Day Shift = "day"
	// Night is the nighttime shift.
	Night Shift = "night"
)

// Clock supplies the current time. Inject a fixed implementation in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Calendar resolves which shift a point in time falls into.
type Calendar interface {
	ShiftAt(t time.Time) Shift
}

// cronParser supports standard 5-field cron expressions.
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// CronCalendar derives shift membership from two cron boundary schedules:
// the day shift runs from the day-start boundary to the night-start boundary.
type CronCalendar struct {
	dayStart   cronlib.Schedule
	nightStart cronlib.Schedule
}

// NewCronCalendar parses the two boundary expressions (e.g. "0 6 * * *" and
// "0 18 * * *") into a calendar.
func NewCronCalendar(dayStartExpr, nightStartExpr string) (*CronCalendar, error) {
	day, err := cronParser.Parse(dayStartExpr)
	if err != nil {
		return nil, fmt.Errorf("shift: parse day boundary %q: %w", dayStartExpr, err)
	}
	night, err := cronParser.Parse(nightStartExpr)
	if err != nil {
		return nil, fmt.Errorf("shift: parse night boundary %q: %w", nightStartExpr, err)
	}
	return &CronCalendar{dayStart: day, nightStart: night}, nil
}

// ShiftAt reports the shift t falls into. The most recent boundary to fire
// before t decides: a day-start boundary opens the day shift, a night-start
// boundary opens the night shift.
func (c *CronCalendar) ShiftAt(t time.Time) Shift {
	// Schedules only expose Next, so scan forward from 24h back and keep
	// the last boundary at or before t.
	probe := t.Add(-24 * time.Hour)
	lastDay := lastFireBefore(c.dayStart, probe, t)
	lastNight := lastFireBefore(c.nightStart, probe, t)

	if lastNight.After(lastDay) {
		return Night
	}
	return Day
}

// lastFireBefore returns the latest schedule activation in (from, until].
// Returns the zero time when the schedule never fires in the window.
func lastFireBefore(s cronlib.Schedule, from, until time.Time) time.Time {
	var last time.Time
	next := s.Next(from)
	for !next.IsZero() && !next.After(until) {
		last = next
		next = s.Next(next)
	}
	return last
}

// Fixed is a calendar that always reports the same shift. For tests.
type Fixed Shift

// ShiftAt returns the fixed shift regardless of t.
func (f Fixed) ShiftAt(time.Time) Shift { return Shift(f) }

// FixedClock is a Clock pinned to one instant. For tests.
type FixedClock time.Time

// Now returns the pinned instant.
func (f FixedClock) Now() time.Time { return time.Time(f) }
