package model

import "time"

// Event is a planned drink at one or more locations. StartsAt must be
// before EndsAt; handlers validate this before any conflict check runs.
type Event struct {
	ID             int64     `json:"id"`
	OrganizerID    int64     `json:"organizer_id"`
	ParticipantIDs []int64   `json:"participant_ids"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	LocationIDs    []int64   `json:"location_ids"`
	// IsClosed gates bartender enrollment; flipping it triggers a
	// notification intent.
	IsClosed bool `json:"is_closed"`
	// Option marks the booking as tentative. Informational only.
	Option         bool      `json:"option"`
	Kegs           int       `json:"kegs"`
	IsRisky        bool      `json:"is_risky"`
	TenderComments string    `json:"tender_comments"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AtLocation reports whether the event is booked at the given location.
func (e Event) AtLocation(locationID int64) bool {
	for _, id := range e.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}
