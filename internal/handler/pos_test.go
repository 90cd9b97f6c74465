package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/svdberg/tapwacht/internal/availability"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

func TestAdmission(t *testing.T) {
	db := setupDB(t)
	orgID := seedOrg(t, db, "Inter-Activiteit", "inter-activiteit")
	tender := seedUser(t, db, "tapper@example.org", "", orgID)
	bystander := seedUser(t, db, "gast@example.org", "", orgID)

	events := store.NewEventStore(db)
	availabilities := store.NewAvailabilityStore(db)

	now := time.Now().UTC()
	tonight, err := events.Create(context.Background(), model.Event{
		OrganizerID: orgID,
		Name:        "Donderdagborrel",
		StartsAt:    now.Add(time.Hour),
		EndsAt:      now.Add(5 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	nextMonth, err := events.Create(context.Background(), model.Event{
		OrganizerID: orgID,
		Name:        "Gala",
		StartsAt:    now.Add(30 * 24 * time.Hour),
		EndsAt:      now.Add(30*24*time.Hour + 6*time.Hour),
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}

	assigned, err := availabilities.CreateType(context.Background(), orgID, "Ingedeeld", availability.Assigned)
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	for _, eventID := range []int64{tonight.ID, nextMonth.ID} {
		if err := availabilities.Set(context.Background(), tender.ID, eventID, assigned.ID); err != nil {
			t.Fatalf("assign tender: %v", err)
		}
	}

	authorizations := store.NewAuthorizationStore(db)
	if _, err := authorizations.Create(context.Background(), model.Authorization{
		UserID:         tender.ID,
		OrganizationID: orgID,
		StartDate:      now.Add(-24 * time.Hour),
	}); err != nil {
		t.Fatalf("seed authorization: %v", err)
	}

	h := NewPOSHandler(events, store.NewUserStore(db), availabilities, authorizations, testLogger())
	check := func(userID, eventID int64) (bool, string) {
		body := fmt.Sprintf(`{"user_id": %d, "event_id": %d}`, userID, eventID)
		r := httptest.NewRequest(http.MethodPost, "/api/pos/admission", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Admission(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("admission: got status %d: %s", w.Code, w.Body.String())
		}
		var resp admissionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp.Allowed, resp.Reason
	}

	if allowed, reason := check(tender.ID, tonight.ID); !allowed {
		t.Errorf("assigned tender within window denied: %s", reason)
	}
	if allowed, reason := check(bystander.ID, tonight.ID); allowed || reason != "not a tender for this event" {
		t.Errorf("bystander: allowed=%v reason=%q", allowed, reason)
	}
	if allowed, reason := check(tender.ID, nextMonth.ID); allowed || reason != "this event is not open" {
		t.Errorf("outside window: allowed=%v reason=%q", allowed, reason)
	}
}

func TestAdmissionRequiresAuthorization(t *testing.T) {
	db := setupDB(t)
	orgID := seedOrg(t, db, "Inter-Activiteit", "inter-activiteit")
	tender := seedUser(t, db, "tapper@example.org", "", orgID)

	events := store.NewEventStore(db)
	availabilities := store.NewAvailabilityStore(db)
	authorizations := store.NewAuthorizationStore(db)

	now := time.Now().UTC()
	tonight, err := events.Create(context.Background(), model.Event{
		OrganizerID: orgID,
		Name:        "Donderdagborrel",
		StartsAt:    now.Add(time.Hour),
		EndsAt:      now.Add(5 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	assigned, err := availabilities.CreateType(context.Background(), orgID, "Ingedeeld", availability.Assigned)
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	if err := availabilities.Set(context.Background(), tender.ID, tonight.ID, assigned.ID); err != nil {
		t.Fatalf("assign tender: %v", err)
	}

	h := NewPOSHandler(events, store.NewUserStore(db), availabilities, authorizations, testLogger())
	check := func() (bool, string) {
		body := fmt.Sprintf(`{"user_id": %d, "event_id": %d}`, tender.ID, tonight.ID)
		r := httptest.NewRequest(http.MethodPost, "/api/pos/admission", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Admission(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("admission: got status %d: %s", w.Code, w.Body.String())
		}
		var resp admissionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp.Allowed, resp.Reason
	}

	if allowed, reason := check(); allowed || reason != "no active authorization" {
		t.Errorf("without authorization: allowed=%v reason=%q", allowed, reason)
	}

	// An authorization that already ended does not count.
	ended := now.Add(-time.Hour)
	if _, err := authorizations.Create(context.Background(), model.Authorization{
		UserID:         tender.ID,
		OrganizationID: orgID,
		StartDate:      now.Add(-48 * time.Hour),
		EndDate:        &ended,
	}); err != nil {
		t.Fatalf("seed authorization: %v", err)
	}
	if allowed, reason := check(); allowed || reason != "no active authorization" {
		t.Errorf("expired authorization: allowed=%v reason=%q", allowed, reason)
	}

	if _, err := authorizations.Create(context.Background(), model.Authorization{
		UserID:         tender.ID,
		OrganizationID: orgID,
		StartDate:      now.Add(-24 * time.Hour),
	}); err != nil {
		t.Fatalf("seed authorization: %v", err)
	}
	if allowed, reason := check(); !allowed {
		t.Errorf("open-ended authorization denied: %s", reason)
	}
}

func TestAdmissionUnknownEvent(t *testing.T) {
	db := setupDB(t)
	orgID := seedOrg(t, db, "Inter-Activiteit", "inter-activiteit")
	user := seedUser(t, db, "tapper@example.org", "", orgID)

	h := NewPOSHandler(store.NewEventStore(db), store.NewUserStore(db), store.NewAvailabilityStore(db), store.NewAuthorizationStore(db), testLogger())
	body := fmt.Sprintf(`{"user_id": %d, "event_id": 99}`, user.ID)
	r := httptest.NewRequest(http.MethodPost, "/api/pos/admission", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Admission(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", w.Code)
	}
}
