package store

import (
	"context"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	user := seedUser(t, db, "kees@example.org", orgID)
	s := NewSessionStore(db)

	sess, err := s.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("session should have a token")
	}

	got, err := s.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Fatalf("get by token returned %v", got)
	}

	if err := s.Delete(ctx, sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, err = s.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("session should be gone after delete")
	}
}

func TestSessionExpiry(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	user := seedUser(t, db, "kees@example.org", orgID)
	s := NewSessionStore(db)

	sess, err := s.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE token = ?`,
		time.Now().UTC().Add(-time.Hour), sess.Token); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	got, err := s.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("expired session should not resolve")
	}

	deleted, err := s.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d sessions, want 1", deleted)
	}
}
