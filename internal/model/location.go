package model

import "time"

type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	// IsPublic marks locations that conflict queries consider when no
	// explicit location set is given.
	IsPublic bool `json:"is_public"`
	// PreventConflicts is false for locations that tolerate simultaneous
	// bookings; they are skipped entirely during conflict checks.
	PreventConflicts bool      `json:"prevent_conflicts"`
	CreatedAt        time.Time `json:"created_at"`
}
