package store

import (
	"context"
	"testing"
)

func TestUserCreateAndLookup(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	s := NewUserStore(db)

	u, err := s.Create(ctx, "kees@example.org", "Kees", "hash", orgID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "kees@example.org" || u.OrganizationID != orgID {
		t.Errorf("created = %+v", u)
	}
	if u.IsTender || u.IsSuperuser || u.IvaOverride || u.CertificateApprovedAt != nil {
		t.Errorf("flags should default to off: %+v", u)
	}

	byEmail, err := s.GetByEmail(ctx, "kees@example.org")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != u.ID {
		t.Fatalf("get by email returned %v", byEmail)
	}

	missing, err := s.GetByEmail(ctx, "nobody@example.org")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestListTenders(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	orgID := seedOrganization(t, db)
	s := NewUserStore(db)

	tender := seedUser(t, db, "tapper@example.org", orgID)
	if err := s.SetTender(ctx, tender.ID, true); err != nil {
		t.Fatalf("set tender: %v", err)
	}
	// Not a tender
	seedUser(t, db, "lid@example.org", orgID)
	// Tender without an address is unreachable by mail
	mailless, err := s.Create(ctx, "", "Zonder Mail", "", orgID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.SetTender(ctx, mailless.ID, true); err != nil {
		t.Fatalf("set tender: %v", err)
	}

	tenders, err := s.ListTenders(ctx, orgID)
	if err != nil {
		t.Fatalf("list tenders: %v", err)
	}
	if len(tenders) != 1 || tenders[0].ID != tender.ID {
		t.Errorf("tenders = %+v, want only %d", tenders, tender.ID)
	}
	if !tenders[0].IsTender {
		t.Error("listed user should carry the tender flag")
	}
}
