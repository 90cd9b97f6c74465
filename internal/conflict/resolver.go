// Package conflict decides which bookings occupy a shared location at
// the same time. It is read-only: every method is a deterministic
// computation over data supplied by its sources, safe for concurrent
// use. The check-then-act sequence of "no conflict, then commit" is the
// caller's to serialize per location.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/svdberg/tapwacht/internal/interval"
	"github.com/svdberg/tapwacht/internal/model"
)

var (
	// ErrInvalidInterval rejects queries whose end is not after their
	// start. The resolver never repairs a malformed interval.
	ErrInvalidInterval = errors.New("interval end must be after start")
	// ErrIntervalTooLong rejects quarter-grid scans over pathological
	// durations.
	ErrIntervalTooLong = errors.New("interval too long")
	// ErrLocationNotFound is returned when a supplied location id does
	// not resolve.
	ErrLocationNotFound = errors.New("location not found")
)

// adjacencyMargin is how close a booking may be to count as adjacent.
const adjacencyMargin = 15 * time.Minute

// EventSource supplies candidate events for conflict checks.
type EventSource interface {
	// OccurringAt returns events overlapping [start, end).
	OccurringAt(ctx context.Context, start, end time.Time) ([]model.Event, error)
	// NextStartingAt returns the earliest event starting at or after t
	// at any of the given locations, or nil. An empty location set means
	// all public locations.
	NextStartingAt(ctx context.Context, t time.Time, locationIDs []int64) (*model.Event, error)
}

// ReservationSource supplies the weekly standard reservations.
type ReservationSource interface {
	List(ctx context.Context) ([]model.StandardReservation, error)
}

// LocationSource resolves location ids and the default public set.
type LocationSource interface {
	GetByID(ctx context.Context, id int64) (*model.Location, error)
	ListPublic(ctx context.Context) ([]model.Location, error)
}

type Resolver struct {
	events       EventSource
	reservations ReservationSource
	locations    LocationSource
}

func NewResolver(events EventSource, reservations ReservationSource, locations LocationSource) *Resolver {
	return &Resolver{
		events:       events,
		reservations: reservations,
		locations:    locations,
	}
}

// Conflicts returns every event that overlaps [start, end) at any of the
// given locations. With no location ids, all public locations are
// assumed. Locations that tolerate simultaneous bookings are skipped.
// excludeEventID removes the caller's own event from the result; pass 0
// to keep everything.
func (r *Resolver) Conflicts(ctx context.Context, start, end time.Time, locationIDs []int64, excludeEventID int64) ([]model.Event, error) {
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

	candidates, err := r.events.OccurringAt(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list occurring events: %w", err)
	}

	var conflicts []model.Event
	for _, e := range candidates {
		if e.ID == excludeEventID {
			continue
		}
		if !interval.Overlaps(start, end, e.StartsAt, e.EndsAt) {
			continue
		}
		for _, loc := range locations {
			if e.AtLocation(loc.ID) {
				conflicts = append(conflicts, e)
				break
			}
		}
	}
	return conflicts, nil
}

// Adjacent returns events that are back-to-back with [start, end) but
// not conflicting: conflicts of the interval widened by the adjacency
// margin on each side, minus conflicts of the exact interval.
func (r *Resolver) Adjacent(ctx context.Context, start, end time.Time, locationIDs []int64, excludeEventID int64) ([]model.Event, error) {
	widened, err := r.Conflicts(ctx, start.Add(-adjacencyMargin), end.Add(adjacencyMargin), locationIDs, excludeEventID)
	if err != nil {
		return nil, err
	}
	exact, err := r.Conflicts(ctx, start, end, locationIDs, excludeEventID)
	if err != nil {
		return nil, err
	}

	conflicting := make(map[int64]bool, len(exact))
	for _, e := range exact {
		conflicting[e.ID] = true
	}

	var adjacent []model.Event
	for _, e := range widened {
		if !conflicting[e.ID] {
			adjacent = append(adjacent, e)
		}
	}
	return adjacent, nil
}

// resolveLocations turns explicit ids into locations, or falls back to
// the public set, dropping locations that do not prevent conflicts.
func (r *Resolver) resolveLocations(ctx context.Context, locationIDs []int64) ([]model.Location, error) {
	var locations []model.Location
	if len(locationIDs) > 0 {
		for _, id := range locationIDs {
			loc, err := r.locations.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get location %d: %w", id, err)
			}
			if loc == nil {
				return nil, fmt.Errorf("location %d: %w", id, ErrLocationNotFound)
			}
			locations = append(locations, *loc)
		}
	} else {
		public, err := r.locations.ListPublic(ctx)
		if err != nil {
			return nil, fmt.Errorf("list public locations: %w", err)
		}
		locations = public
	}

	checked := locations[:0]
	for _, loc := range locations {
		if loc.PreventConflicts {
			checked = append(checked, loc)
		}
	}
	return checked, nil
}
