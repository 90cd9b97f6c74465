package model

// AvailabilityType is an organization-owned label for bartender
// availability ("Tapper", "Reserve", ...). Nature is the single-letter
// code persisted in the database: A, Y, M or N.
type AvailabilityType struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
	Nature         string `json:"nature"`
}

// BartenderAvailability links a user to an event through one
// AvailabilityType. Unique per (user, event).
type BartenderAvailability struct {
	ID             int64 `json:"id"`
	UserID         int64 `json:"user_id"`
	EventID        int64 `json:"event_id"`
	AvailabilityID int64 `json:"availability_id"`
}
