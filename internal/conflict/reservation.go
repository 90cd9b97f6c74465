package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/svdberg/tapwacht/internal/model"
)

// secondsPerWeek is the length of the reservation week, Monday 00:00 to
// the following Monday 00:00.
const secondsPerWeek = 7 * 24 * 3600

// StandardConflicts returns every weekly reservation occupied during
// [start, end) at the given locations (default: all public locations).
// Reservations repeat every week, so a query spanning seven days or more
// matches all of them. Shorter queries are projected onto
// (weekday, time-of-day) and compared segment-wise; both the query and a
// reservation may wrap through the Sunday→Monday boundary, in which case
// they are split at Monday 00:00.
func (r *Resolver) StandardConflicts(ctx context.Context, start, end time.Time, locationIDs []int64) ([]model.StandardReservation, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}

	locations, err := r.resolveLocations(ctx, locationIDs)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, nil
	}
	allowed := make(map[int64]bool, len(locations))
	for _, loc := range locations {
		allowed[loc.ID] = true
	}

	reservations, err := r.reservations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list standard reservations: %w", err)
	}

	everyWeek := end.Sub(start) >= 7*24*time.Hour
	var query []weekSegment
	if !everyWeek {
		query = querySegments(start, end)
	}

	var matches []model.StandardReservation
	for _, res := range reservations {
		if !allowed[res.LocationID] {
			continue
		}
		if everyWeek || segmentsOverlap(query, reservationSegments(res)) {
			matches = append(matches, res)
		}
	}
	return matches, nil
}

// weekSegment is a half-open range of seconds since Monday 00:00.
type weekSegment struct {
	start, end int
}

func weekSecond(t time.Time) int {
	day := int(t.Weekday())
	if day == 0 {
		day = 7 // Sunday
	}
	return (day-1)*24*3600 + t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// querySegments projects [start, end) onto the week, splitting at
// Monday 00:00 when the interval crosses Sunday into Monday.
func querySegments(start, end time.Time) []weekSegment {
	qs := weekSecond(start)
	qe := weekSecond(end)
	if qe > qs {
		return []weekSegment{{qs, qe}}
	}
	return []weekSegment{{qs, secondsPerWeek}, {0, qe}}
}

// reservationSegments expands a reservation into week segments, splitting
// wrapped reservations at Monday 00:00.
func reservationSegments(res model.StandardReservation) []weekSegment {
	rs := (res.StartDay-1)*24*3600 + res.StartTime*60
	re := (res.EndDay-1)*24*3600 + res.EndTime*60
	if res.Wraps() {
		return []weekSegment{{rs, secondsPerWeek}, {0, re}}
	}
	return []weekSegment{{rs, re}}
}

func segmentsOverlap(a, b []weekSegment) bool {
	for _, sa := range a {
		for _, sb := range b {
			if sa.start < sb.end && sb.start < sa.end {
				return true
			}
		}
	}
	return false
}
