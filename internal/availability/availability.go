// Package availability models bartender availability for events: a flat
// state set (Assigned, Yes, Maybe, No) with no transition constraints
// beyond type ownership.
package availability

import (
	"errors"
	"fmt"
)

// ErrForeignAvailability is returned when a declared availability type
// does not belong to the event's organizing organization.
var ErrForeignAvailability = errors.New("availability type belongs to another organization")

// Nature classifies an availability type. Assigned is the only nature
// that makes a user a tender for the event.
type Nature int

const (
	Assigned Nature = iota
	Yes
	Maybe
	No
)

var natureCodes = map[Nature]string{
	Assigned: "A",
	Yes:      "Y",
	Maybe:    "M",
	No:       "N",
}

var natureFromCode = map[string]Nature{
	"A": Assigned,
	"Y": Yes,
	"M": Maybe,
	"N": No,
}

// Code returns the single-letter database code for the nature.
func (n Nature) Code() string {
	return natureCodes[n]
}

func (n Nature) String() string {
	switch n {
	case Assigned:
		return "assigned"
	case Yes:
		return "yes"
	case Maybe:
		return "maybe"
	case No:
		return "no"
	}
	return "unknown"
}

// ParseNature converts a database code back into a Nature.
func ParseNature(code string) (Nature, error) {
	n, ok := natureFromCode[code]
	if !ok {
		return 0, fmt.Errorf("unknown availability nature: %q", code)
	}
	return n, nil
}

// Record is a bartender's declared or assigned availability for one
// event, joined with the nature of its availability type.
type Record struct {
	UserID  int64
	EventID int64
	TypeID  int64
	Nature  Nature
}

// AssignedUsers returns the IDs of every user whose record has the
// Assigned nature. Order follows the input.
func AssignedUsers(records []Record) []int64 {
	var users []int64
	for _, r := range records {
		if r.Nature == Assigned {
			users = append(users, r.UserID)
		}
	}
	return users
}

// Declared returns the user's availability record for the event, if any.
// Records are unique per (user, event), so the first match wins.
func Declared(records []Record, userID int64) (Record, bool) {
	for _, r := range records {
		if r.UserID == userID {
			return r, true
		}
	}
	return Record{}, false
}

// ValidateOwnership rejects availability types owned by an organization
// other than the event's organizer. Any nature-to-nature change is legal
// once ownership holds.
func ValidateOwnership(typeOrganizationID, organizerID int64) error {
	if typeOrganizationID != organizerID {
		return ErrForeignAvailability
	}
	return nil
}
