package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/svdberg/tapwacht/internal/database"
	"github.com/svdberg/tapwacht/internal/model"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Ensure foreign keys are enforced (modernc/sqlite may not honor DSN param for :memory:)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedOrganization inserts an organization and returns its id.
func seedOrganization(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	org, err := NewOrganizationStore(db).Create(context.Background(), "Inter-Activiteit", "inter-activiteit")
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return org.ID
}

func seedLocation(t *testing.T, db *sql.DB, name string, isPublic, prevent bool) *model.Location {
	t.Helper()
	loc, err := NewLocationStore(db).Create(context.Background(), name, 80, isPublic, prevent)
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return loc
}

func seedUser(t *testing.T, db *sql.DB, email string, orgID int64) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), email, "Test User", "", orgID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
