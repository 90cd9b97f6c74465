// Package gate decides who may operate the point-of-sale terminal for an
// event and when, and detects enrollment-state transitions. Every
// function is a pure computation over the records passed in; time is
// always an explicit parameter.
package gate

import (
	"time"

	"github.com/svdberg/tapwacht/internal/availability"
	"github.com/svdberg/tapwacht/internal/model"
)

// The terminal may be opened from five hours before the event starts
// until a day after it ends.
const (
	openMarginBefore = 5 * time.Hour
	openMarginAfter  = 24 * time.Hour
)

// Denial reasons handed to the point-of-sale collaborator.
const (
	ReasonNotTender = "not a tender for this event"
	ReasonNotOpen   = "this event is not open"
)

// CanBeOpened reports whether the event may be opened for sales at the
// given moment. Superusers bypass the window. Both bounds are inclusive.
func CanBeOpened(e model.Event, now time.Time, isSuperuser bool) bool {
	if isSuperuser {
		return true
	}
	notBefore := e.StartsAt.Add(-openMarginBefore)
	notAfter := e.EndsAt.Add(openMarginAfter)
	return !now.Before(notBefore) && !now.After(notAfter)
}

// IsTender reports whether the user is assigned to tend this event.
// Declaring "yes" or "maybe" is not enough; only a record with the
// Assigned nature counts. Superusers are always tenders.
func IsTender(records []availability.Record, userID int64, isSuperuser bool) bool {
	if isSuperuser {
		return true
	}
	r, ok := availability.Declared(records, userID)
	return ok && r.Nature == availability.Assigned
}

// NeedsIva reports whether the event requires a certified bartender:
// any event with kegs planned does.
func NeedsIva(e model.Event) bool {
	return e.Kegs > 0
}

// Eligibility carries the externally supplied certification facts for
// one user.
type Eligibility struct {
	UserID              int64
	IvaOverride         bool
	CertificateApproved bool
}

// MeetsIvaRequirement reports whether at least one assigned bartender is
// IVA-certified, either through an override or an approved certificate.
// Only consulted for events where NeedsIva holds.
func MeetsIvaRequirement(records []availability.Record, eligibility []Eligibility) bool {
	eligible := make(map[int64]bool, len(eligibility))
	for _, e := range eligibility {
		if e.IvaOverride || e.CertificateApproved {
			eligible[e.UserID] = true
		}
	}
	for _, userID := range availability.AssignedUsers(records) {
		if eligible[userID] {
			return true
		}
	}
	return false
}

// Admission is the point-of-sale admission check: it allows the user to
// operate the terminal for the event, or denies with a reason string.
func Admission(e model.Event, records []availability.Record, userID int64, now time.Time, isSuperuser bool) (bool, string) {
	if !IsTender(records, userID, isSuperuser) {
		return false, ReasonNotTender
	}
	if !CanBeOpened(e, now, isSuperuser) {
		return false, ReasonNotOpen
	}
	return true, ""
}
