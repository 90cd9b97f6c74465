// Package interval provides the pure time-interval arithmetic the
// scheduling engine is built on. All intervals are half-open [start, end):
// two bookings that merely touch do not overlap.
package interval

import "time"

const quarter = 15 * time.Minute

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share at
// least one instant. Touching endpoints (aEnd == bStart) do not count.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if bStart.Before(aEnd) && aStart.Before(bEnd) {
		return true
	}
	return !aStart.After(bStart) && !aEnd.Before(bEnd)
}

// RoundDownToQuarter quantizes t down to the previous quarter-hour
// boundary. An aligned timestamp is returned unchanged.
func RoundDownToQuarter(t time.Time) time.Time {
	return t.Truncate(quarter)
}

// RoundUpToQuarter quantizes t up to the next quarter-hour boundary. An
// aligned timestamp is returned unchanged.
func RoundUpToQuarter(t time.Time) time.Time {
	down := t.Truncate(quarter)
	if down.Equal(t) {
		return t
	}
	return down.Add(quarter)
}

// RoundDownToHour quantizes t down to the previous full hour.
func RoundDownToHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// RoundUpToHour quantizes t up to the next full hour. An aligned
// timestamp is returned unchanged.
func RoundUpToHour(t time.Time) time.Time {
	down := t.Truncate(time.Hour)
	if down.Equal(t) {
		return t
	}
	return down.Add(time.Hour)
}

// DurationMinutes returns the duration of [start, end) in whole minutes,
// rounding up. Callers must guarantee end >= start.
func DurationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	minutes := d / time.Minute
	if d%time.Minute != 0 {
		minutes++
	}
	return int(minutes)
}

// DurationQuarters returns the duration of [start, end) in whole
// quarters, rounding up. Callers must guarantee end >= start.
func DurationQuarters(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	quarters := d / quarter
	if d%quarter != 0 {
		quarters++
	}
	return int(quarters)
}
