package store

import (
	"context"
	"testing"
	"time"

	"github.com/svdberg/tapwacht/internal/model"
)

func testEvent(orgID int64, locationIDs []int64, start, end time.Time) model.Event {
	return model.Event{
		OrganizerID: orgID,
		Name:        "Thursday drink",
		StartsAt:    start,
		EndsAt:      end,
		LocationIDs: locationIDs,
	}
}

func TestEventCreateAndGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	loc := seedLocation(t, db, "Abscint", true, true)
	s := NewEventStore(db)

	start := time.Date(2026, 3, 5, 16, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 5, 23, 0, 0, 0, time.UTC)

	e := testEvent(orgID, []int64{loc.ID}, start, end)
	e.ParticipantIDs = []int64{orgID}
	e.Kegs = 2

	created, err := s.Create(ctx, e)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if created.Name != "Thursday drink" || created.Kegs != 2 {
		t.Errorf("created = %+v, want name and kegs preserved", created)
	}
	if len(created.LocationIDs) != 1 || created.LocationIDs[0] != loc.ID {
		t.Errorf("location ids = %v, want [%d]", created.LocationIDs, loc.ID)
	}
	if len(created.ParticipantIDs) != 1 || created.ParticipantIDs[0] != orgID {
		t.Errorf("participant ids = %v, want [%d]", created.ParticipantIDs, orgID)
	}
	if !created.StartsAt.Equal(start) {
		t.Errorf("starts at = %v, want %v", created.StartsAt, start)
	}

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("get by id returned %v", got)
	}
}

func TestEventGetMissing(t *testing.T) {
	db := setupDB(t)
	s := NewEventStore(db)

	got, err := s.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing event")
	}
}

func TestEventOccurringAtBoundaries(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	loc := seedLocation(t, db, "Abscint", true, true)
	s := NewEventStore(db)

	start := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 5, 16, 0, 0, 0, time.UTC)
	if _, err := s.Create(ctx, testEvent(orgID, []int64{loc.ID}, start, end)); err != nil {
		t.Fatalf("create event: %v", err)
	}

	// Overlapping window finds the event
	events, err := s.OccurringAt(ctx, start.Add(time.Hour), end.Add(time.Hour))
	if err != nil {
		t.Fatalf("occurring at: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("overlapping window: got %d events, want 1", len(events))
	}

	// Touching window does not
	events, err = s.OccurringAt(ctx, end, end.Add(time.Hour))
	if err != nil {
		t.Fatalf("occurring at: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("touching window: got %d events, want 0", len(events))
	}
}

func TestEventUpdateReplacesLinks(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	locA := seedLocation(t, db, "Abscint", true, true)
	locB := seedLocation(t, db, "Vestingbar", true, true)
	s := NewEventStore(db)

	start := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	created, err := s.Create(ctx, testEvent(orgID, []int64{locA.ID}, start, start.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	created.LocationIDs = []int64{locB.ID}
	created.IsClosed = true
	updated, err := s.Update(ctx, *created)
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if len(updated.LocationIDs) != 1 || updated.LocationIDs[0] != locB.ID {
		t.Errorf("location ids after update = %v, want [%d]", updated.LocationIDs, locB.ID)
	}
	if !updated.IsClosed {
		t.Error("is_closed should be true after update")
	}
}

func TestEventNextStartingAt(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	public := seedLocation(t, db, "Abscint", true, true)
	private := seedLocation(t, db, "Achterzaal", false, true)
	s := NewEventStore(db)

	base := time.Date(2026, 3, 5, 16, 0, 0, 0, time.UTC)
	if _, err := s.Create(ctx, testEvent(orgID, []int64{private.ID}, base.Add(time.Hour), base.Add(2*time.Hour))); err != nil {
		t.Fatalf("create event: %v", err)
	}
	later, err := s.Create(ctx, testEvent(orgID, []int64{public.ID}, base.Add(3*time.Hour), base.Add(4*time.Hour)))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	// Default public scope skips the private location
	next, err := s.NextStartingAt(ctx, base, nil)
	if err != nil {
		t.Fatalf("next starting at: %v", err)
	}
	if next == nil || next.ID != later.ID {
		t.Errorf("public scope: got %v, want event %d", next, later.ID)
	}

	// Explicit location scope finds the earlier event
	next, err = s.NextStartingAt(ctx, base, []int64{private.ID})
	if err != nil {
		t.Fatalf("next starting at: %v", err)
	}
	if next == nil || next.ID == later.ID {
		t.Errorf("explicit scope: got %v, want the private-location event", next)
	}

	// Nothing upcoming
	next, err = s.NextStartingAt(ctx, base.Add(24*time.Hour), nil)
	if err != nil {
		t.Fatalf("next starting at: %v", err)
	}
	if next != nil {
		t.Errorf("empty horizon: got %v, want nil", next)
	}
}

func TestEventDelete(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	loc := seedLocation(t, db, "Abscint", true, true)
	s := NewEventStore(db)

	start := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	created, err := s.Create(ctx, testEvent(orgID, []int64{loc.ID}, start, start.Add(time.Hour)))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got != nil {
		t.Error("event should be gone after delete")
	}
}

func TestWithLocationLock(t *testing.T) {
	db := setupDB(t)
	s := NewEventStore(db)

	ran := false
	err := s.WithLocationLock([]int64{2, 1}, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("with location lock: %v", err)
	}
	if !ran {
		t.Error("callback should run while holding the locks")
	}

	// Locks must be released for the next booking
	if err := s.WithLocationLock([]int64{1, 2}, func() error { return nil }); err != nil {
		t.Fatalf("relock: %v", err)
	}
}
