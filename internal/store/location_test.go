package store

import (
	"context"
	"testing"
)

func TestLocationCreateAndGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewLocationStore(db)

	loc, err := s.Create(ctx, "Abscint", 80, true, true)
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	if loc.Name != "Abscint" || loc.Capacity != 80 || !loc.IsPublic || !loc.PreventConflicts {
		t.Errorf("created = %+v", loc)
	}

	got, err := s.GetByID(ctx, loc.ID)
	if err != nil {
		t.Fatalf("get location: %v", err)
	}
	if got == nil || got.Name != "Abscint" {
		t.Fatalf("get by id returned %v", got)
	}

	missing, err := s.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("get missing location: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing location")
	}
}

func TestLocationListPublic(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewLocationStore(db)

	if _, err := s.Create(ctx, "Abscint", 80, true, true); err != nil {
		t.Fatalf("create location: %v", err)
	}
	if _, err := s.Create(ctx, "Achterzaal", 30, false, true); err != nil {
		t.Fatalf("create location: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list locations: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("list: got %d locations, want 2", len(all))
	}

	public, err := s.ListPublic(ctx)
	if err != nil {
		t.Fatalf("list public locations: %v", err)
	}
	if len(public) != 1 || public[0].Name != "Abscint" {
		t.Errorf("list public = %+v, want only Abscint", public)
	}
}
