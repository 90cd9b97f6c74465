package conflict

import (
	"context"
	"time"

	"github.com/svdberg/tapwacht/internal/interval"
	"github.com/svdberg/tapwacht/internal/model"
)

// maxGridQuarters bounds quarter-grid scans to a week of quarters. Each
// quarter costs a conflict check, so longer events must be rejected by
// input validation before they reach the grid.
const maxGridQuarters = 7 * 24 * 4

// RoundedStart returns the event's start rounded down to a quarter.
func RoundedStart(e model.Event) time.Time {
	return interval.RoundDownToQuarter(e.StartsAt)
}

// RoundedEnd returns the event's end rounded up to a quarter.
func RoundedEnd(e model.Event) time.Time {
	return interval.RoundUpToQuarter(e.EndsAt)
}

// RoundedDuration returns the event's duration in quarters, using the
// outward-rounded start and end. Rounding an already-aligned event
// changes nothing.
func RoundedDuration(e model.Event) int {
	return interval.DurationQuarters(RoundedStart(e), RoundedEnd(e))
}

// FreeQuarters classifies each quarter of the event's rounded duration
// and returns the 0-based offsets of those without conflicts at the
// given locations (default: all public locations). The event itself
// never conflicts with its own quarters.
func (r *Resolver) FreeQuarters(ctx context.Context, e model.Event, locationIDs []int64) ([]int, error) {
	quarters := RoundedDuration(e)
	if quarters > maxGridQuarters {
		return nil, ErrIntervalTooLong
	}

	start := RoundedStart(e)
	var free []int
	for q := 0; q < quarters; q++ {
		qStart := start.Add(time.Duration(q) * 15 * time.Minute)
		qEnd := start.Add(time.Duration(q+1) * 15 * time.Minute)

		conflicts, err := r.Conflicts(ctx, qStart, qEnd, locationIDs, e.ID)
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			free = append(free, q)
		}
	}
	return free, nil
}

// FreeQuartersAfter returns the number of whole quarters between the
// event's rounded end and the rounded start of the next event at the
// given locations (default: all public locations). It returns 0 when no
// next event exists or the location is not free at the event's end.
func (r *Resolver) FreeQuartersAfter(ctx context.Context, e model.Event, locationIDs []int64) (int, error) {
	end := RoundedEnd(e)

	// An event still running at the end occupies the gap without ever
	// starting inside it, so check the first quarter directly.
	occupied, err := r.Conflicts(ctx, end, end.Add(15*time.Minute), locationIDs, e.ID)
	if err != nil {
		return 0, err
	}
	if len(occupied) > 0 {
		return 0, nil
	}

	next, err := r.events.NextStartingAt(ctx, end, locationIDs)
	if err != nil {
		return 0, err
	}
	if next == nil {
		return 0, nil
	}

	nextStart := RoundedStart(*next)
	if !nextStart.After(end) {
		return 0, nil
	}
	return interval.DurationQuarters(end, nextStart), nil
}
