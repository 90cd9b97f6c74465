package model

// Weekday numbering for standard reservations, ISO style: Monday is 1,
// Sunday is 7.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
	Sunday    = 7
)

// StandardReservation is a weekly recurring hold on a location,
// independent of calendar dates. StartTime and EndTime are minutes since
// midnight. A reservation whose end day precedes its start day wraps
// through Sunday into the next week.
type StandardReservation struct {
	ID             int64 `json:"id"`
	OrganizationID int64 `json:"organization_id"`
	LocationID     int64 `json:"location_id"`
	StartDay       int   `json:"start_day"`
	StartTime      int   `json:"start_time"`
	EndDay         int   `json:"end_day"`
	EndTime        int   `json:"end_time"`
}

// Wraps reports whether the reservation runs through the Sunday→Monday
// boundary.
func (r StandardReservation) Wraps() bool {
	return r.EndDay < r.StartDay || (r.EndDay == r.StartDay && r.EndTime <= r.StartTime)
}
