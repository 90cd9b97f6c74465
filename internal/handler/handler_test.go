package handler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/database"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedOrg(t *testing.T, db *sql.DB, name, slug string) int64 {
	t.Helper()
	org, err := store.NewOrganizationStore(db).Create(context.Background(), name, slug)
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return org.ID
}

func seedLocation(t *testing.T, db *sql.DB, name string) *model.Location {
	t.Helper()
	loc, err := store.NewLocationStore(db).Create(context.Background(), name, 80, true, true)
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return loc
}

func seedUser(t *testing.T, db *sql.DB, email, passwordHash string, orgID int64) *model.User {
	t.Helper()
	u, err := store.NewUserStore(db).Create(context.Background(), email, "Test Tapper", passwordHash, orgID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// asUser attaches an authenticated context to the request, the way the
// auth middleware would after validating a session.
func asUser(r *http.Request, userID, orgID int64, superuser bool) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID:         userID,
		OrganizationID: orgID,
		IsSuperuser:    superuser,
	})
	return r.WithContext(ctx)
}
