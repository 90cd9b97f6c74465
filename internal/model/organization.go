package model

import "time"

type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Authorization is a billing-account window granted to a user by an
// organization. POS admission requires one that is active.
type Authorization struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	OrganizationID int64      `json:"organization_id"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// Active reports whether the authorization is valid at the given moment.
// A nil EndDate means open-ended.
func (a Authorization) Active(now time.Time) bool {
	if now.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !now.After(*a.EndDate)
}
